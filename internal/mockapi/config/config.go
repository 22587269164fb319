// Package config handles configuration for the mock API server,
// including defaults, JSON overlay, environment and command-line flags.
package config

import "time"

// Config holds runtime settings for the mock Hubbits API.
//
// Fields:
//   - Address: bind address of the HTTP listener.
//   - MetricsPath: path the Prometheus handler is mounted on.
//   - SecretKey: HMAC secret for signing access tokens (HS256). Empty means
//     a random secret per run.
//   - AccessTokenTTL: lifetime of access tokens. Keep it short to watch the
//     client refresh.
//   - RawLogin: answer login with a bare token, like the production backend.
//   - RotateRefresh: issue a new refresh token on every refresh.
//   - Seed: create the demo accounts and records on startup.
type Config struct {
	Address        string        `env:"MOCKAPI_ADDRESS"`
	MetricsPath    string        `env:"MOCKAPI_METRICS_PATH"`
	SecretKey      string        `env:"MOCKAPI_SECRET_KEY"`
	AccessTokenTTL time.Duration `env:"MOCKAPI_ACCESS_TOKEN_TTL"`
	RawLogin       bool          `env:"MOCKAPI_RAW_LOGIN"`
	RotateRefresh  bool          `env:"MOCKAPI_ROTATE_REFRESH"`
	Seed           bool          `env:"MOCKAPI_SEED"`
	LogLevel       string        `env:"MOCKAPI_LOG_LEVEL"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Address = ":8080"
	c.MetricsPath = "/metrics"
	c.SecretKey = ""
	c.AccessTokenTTL = 1 * time.Minute
	c.RawLogin = false
	c.RotateRefresh = false
	c.Seed = true
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
