// Package config loads and validates service configuration.
//
// Configuration is layered, in increasing order of precedence:
//
//  1. config.yml (searched near the binary, see Load)
//  2. a .env file
//  3. SCRIBE_* environment variables
//
// Every section carries its own defaults, so an empty configuration
// yields a runnable service.
package config
