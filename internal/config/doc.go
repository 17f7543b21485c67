// Package config builds the immutable service configuration once at startup.
// Secrets and database credentials are read from the process environment with
// a .env file as fallback; server tuning may additionally come from a YAML file
// or CLI flags with precedence: CLI flags > YAML config > Environment variables
// > Defaults. Missing required variables fail Load before anything is served.
package config
