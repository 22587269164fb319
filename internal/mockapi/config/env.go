package config

import "github.com/ilyakaznacheev/cleanenv"

// parseEnv overlays Config with MOCKAPI_* environment variables. It panics
// on malformed values.
func parseEnv(cfg *Config) {
	if err := cleanenv.ReadEnv(cfg); err != nil {
		panic(err)
	}
}
