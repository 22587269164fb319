// Package config loads runtime configuration for the Hubbits CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. HUBBITS_* environment variables (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the Hubbits REST API
//	-t int      request timeout (seconds)
//	-d string   path of the local SQLite database
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "15s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://localhost:8080",
//	  "request_timeout": "15s",
//	  "database_path": "/home/me/.hubbits/hubbits.db",
//	  "log_level": "info",
//	  "refresh_path": "/api/auth/refresh"
//	}
package config
