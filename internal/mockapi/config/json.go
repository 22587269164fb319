package config

import (
	"encoding/json"
	"os"

	"github.com/g1appdev/hubbits/internal/flagx"
	"github.com/g1appdev/hubbits/internal/timex"
)

// JsonConfig is the file form of Config. Pointer fields distinguish "absent"
// from the zero value.
type JsonConfig struct {
	Address        string          `json:"address"`
	MetricsPath    string          `json:"metrics_path"`
	SecretKey      string          `json:"secret_key"`
	AccessTokenTTL *timex.Duration `json:"access_token_ttl"`
	RawLogin       *bool           `json:"raw_login"`
	RotateRefresh  *bool           `json:"rotate_refresh"`
	Seed           *bool           `json:"seed"`
	LogLevel       string          `json:"log_level"`
}

// parseJson overlays Config with the file named by -c/-config. It panics on
// read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.Address != "" {
		cfg.Address = jc.Address
	}
	if jc.MetricsPath != "" {
		cfg.MetricsPath = jc.MetricsPath
	}
	if jc.SecretKey != "" {
		cfg.SecretKey = jc.SecretKey
	}
	if jc.AccessTokenTTL != nil {
		cfg.AccessTokenTTL = jc.AccessTokenTTL.Duration
	}
	if jc.RawLogin != nil {
		cfg.RawLogin = *jc.RawLogin
	}
	if jc.RotateRefresh != nil {
		cfg.RotateRefresh = *jc.RotateRefresh
	}
	if jc.Seed != nil {
		cfg.Seed = *jc.Seed
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
