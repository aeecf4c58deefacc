// Package config loads and validates application configuration from
// environment variables, with sane defaults for local development.
package config
