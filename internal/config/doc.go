// Package config loads the application configuration: the orchestrator model,
// the sub-agents and their tools, device addresses, checkpoint storage and the
// HTTP server settings.
//
// Files may be YAML (.yaml, .yml) or JSON (.json). Device addresses can live in
// a separate config/devices.yaml, searched next to the working directory and
// the configuration file. Secrets never live in the file: they come from the
// environment, optionally seeded from a .env file with [LoadEnv].
package config
