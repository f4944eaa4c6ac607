package classifier

import (
	"testing"

	"github.com/oraclemesh/oracle/oracle"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		text string
		want oracle.QueryType
	}{
		{"what is the price of bitcoin", oracle.QueryPriceFeed},
		{"how much does ETH cost", oracle.QueryPriceFeed},
		{"usd to eur exchange rate", oracle.QueryExchangeRate},
		{"gbp/jpy", oracle.QueryExchangeRate},
		{"what's the weather forecast in berlin", oracle.QueryWeather},
		{"latest news on the election", oracle.QueryNewsOrSearch},
		{"tell me about the next nasa satellite launch", oracle.QuerySpaceData},
		{"what is photosynthesis", oracle.QueryKnowledge},
		// "ada" is a crypto ticker word, and the price rule precedes knowledge.
		{"who is ada lovelace", oracle.QueryPriceFeed},
		{"provider health status", oracle.QueryCustom},
		{"asdkjhasdkjh random gibberish", oracle.QueryCustom},
	}

	for _, c := range cases {
		t.Run(c.text, func(t *testing.T) {
			got := Classify(c.text)
			if got != c.want {
				t.Errorf("Classify(%q) = %q, want %q", c.text, got, c.want)
			}
		})
	}
}

func TestClassify_IntrospectionTakesPriority(t *testing.T) {
	// "balance" is an introspection keyword; it should win even though
	// "price" also appears.
	got := Classify("what's the price feed provider balance")
	if got != oracle.QueryCustom {
		t.Errorf("got %q, want %q", got, oracle.QueryCustom)
	}
}

func TestEligible(t *testing.T) {
	registered := []string{"chainlink", "coingecko", "openweather", "wikipedia"}

	got := Eligible(oracle.QueryPriceFeed, registered)
	want := []string{"chainlink", "coingecko"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestEligible_CustomReturnsAllRegistered(t *testing.T) {
	registered := []string{"chainlink", "openweather", "custom-http"}
	got := Eligible(oracle.QueryCustom, registered)
	if len(got) != len(registered) {
		t.Errorf("got %v, want all of %v", got, registered)
	}
}

func TestIntersect(t *testing.T) {
	registered := []string{"chainlink", "coingecko", "dia"}
	sources := []string{"dia", "unknown-provider"}

	got := Intersect(sources, registered)
	if len(got) != 1 || got[0] != "dia" {
		t.Errorf("got %v, want [dia]", got)
	}
}
