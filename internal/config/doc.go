// Package config loads the service configuration. Values come from the process environment,
// optionally seeded from a .env file, with defaults suitable for a local MongoDB.
package config
