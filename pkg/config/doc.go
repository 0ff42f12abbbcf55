// Package config loads application configuration from GUESTFLOW_*
// environment variables with sensible local-development defaults.
package config
