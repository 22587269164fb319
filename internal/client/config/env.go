package config

import (
	"github.com/ilyakaznacheev/cleanenv"
)

// parseEnv overlays Config with HUBBITS_* environment variables. Unset
// variables leave the current values alone. It panics on malformed values.
func parseEnv(cfg *Config) {
	if err := cleanenv.ReadEnv(cfg); err != nil {
		panic(err)
	}
}
