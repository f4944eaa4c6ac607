/*
Package config provides configuration management for the oracle service.

# Overview

config owns the full lifecycle of process configuration: defaults, YAML
file overlay, then environment-variable overrides. Priority is
"defaults -> YAML file -> environment variables".

# Core structures

  - Config: top-level aggregate covering Oracle, Providers, Audit, Cache,
    Redis, Database, Log, Telemetry, Server
  - Loader: builder-style loader; chains WithConfigPath/WithEnvPrefix/
    WithValidator before Load()

# Usage

	cfg, err := config.NewLoader().
	    WithConfigPath("oracle.yaml").
	    WithEnvPrefix("ORACLE").
	    Load()
*/
package config
