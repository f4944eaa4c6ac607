package main

import (
	"fmt"
	"net/http"

	"github.com/oraclemesh/oracle/config"
	"github.com/oraclemesh/oracle/provider"
	"github.com/oraclemesh/oracle/providers"
)

// buildProvider constructs the concrete provider named by cfg.Type,
// per SPEC_FULL.md's supplemented providers table. An empty type or
// "custom" builds a generic CustomProvider passthrough; any other
// unrecognized type returns an error.
func buildProvider(cfg config.ProviderConfig) (provider.Provider, error) {
	client := &http.Client{}

	switch cfg.Type {
	case "chainlink":
		return providers.NewChainlinkProvider(providers.ChainlinkConfig{
			BaseURL: cfg.BaseURL, Weight: cfg.Weight, Reliability: cfg.Reliability, RPS: cfg.RateLimitRPS,
		}, client), nil
	case "coingecko":
		return providers.NewCoinGeckoProvider(providers.CoinGeckoConfig{
			BaseURL: cfg.BaseURL, Weight: cfg.Weight, Reliability: cfg.Reliability,
		}, client), nil
	case "dia":
		return providers.NewDIAProvider(providers.DIAConfig{
			BaseURL: cfg.BaseURL, Weight: cfg.Weight, Reliability: cfg.Reliability,
		}, client), nil
	case "openweather":
		return providers.NewOpenWeatherProvider(providers.OpenWeatherConfig{
			BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Weight: cfg.Weight, Reliability: cfg.Reliability,
		}, client), nil
	case "wikipedia":
		return providers.NewWikipediaProvider(providers.WikipediaConfig{
			BaseURL: cfg.BaseURL, Weight: cfg.Weight, Reliability: cfg.Reliability,
		}, client), nil
	case "newsapi":
		return providers.NewNewsAPIProvider(providers.NewsAPIConfig{
			BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Weight: cfg.Weight, Reliability: cfg.Reliability,
		}, client), nil
	case "custom", "":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("provider %q: custom provider requires base_url as its endpoint template", cfg.Name)
		}
		return providers.NewCustomProvider(providers.CustomConfig{
			Name: cfg.Name, EndpointTemplate: cfg.BaseURL, Weight: cfg.Weight, Reliability: cfg.Reliability, RPS: cfg.RateLimitRPS,
		}, client), nil
	default:
		return nil, fmt.Errorf("provider %q: unrecognized type %q", cfg.Name, cfg.Type)
	}
}
