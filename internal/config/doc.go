// Package config provides centralized configuration management for the tank event pipeline.
// It loads configuration from multiple sources, validates it, and exposes typed values and
// resolved file paths to the rest of the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML configuration file (config.yaml or configs/config.yaml)
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern TANKEVENTS_<SECTION>_<FIELD>:
//
//	TANKEVENTS_SERVER_PORT=8080
//	TANKEVENTS_LOGGING_LEVEL=debug
//	TANKEVENTS_HISTORIAN_SERVER=historian.plant.local
//	TANKEVENTS_REPORT_SITE=Lima
//	TANKEVENTS_REPORT_UNGROUNDED_TANKS=12:122506,8944:156692
//
// The historian credentials are also read from the legacy variable names used by the
// extraction job (client_id, client_secret, ion_username, ion_password, server, token_url)
// when the prefixed variables are not set.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	roster := cfg.Paths.RosterFile()
package config
