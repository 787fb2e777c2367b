// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional YAML file. It provides type-safe
// access to server, database, auth, stream, delivery and Redis settings.
package config
