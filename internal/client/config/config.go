package config

import (
	"path/filepath"
	"time"

	"github.com/g1appdev/hubbits/internal/filex"
)

const (
	// DataDirName is the directory, relative to the working directory, that
	// holds the default database.
	DataDirName = ".hubbits"
	// DatabaseFileName is the default database file name inside DataDirName.
	DatabaseFileName = "hubbits.db"
)

// Config holds runtime settings for the Hubbits CLI.
//
// An empty DatabasePath means "<cwd>/.hubbits/hubbits.db", resolved by
// EnsureDatabasePath.
type Config struct {
	ServerURL      string        `env:"HUBBITS_SERVER_URL"`
	RequestTimeout time.Duration `env:"HUBBITS_REQUEST_TIMEOUT"`
	DatabasePath   string        `env:"HUBBITS_DATABASE_PATH"`
	LogLevel       string        `env:"HUBBITS_LOG_LEVEL"`
	RefreshPath    string        `env:"HUBBITS_REFRESH_PATH"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8080"
	c.RequestTimeout = 15 * time.Second
	c.DatabasePath = ""
	c.LogLevel = "info"
	c.RefreshPath = "/api/auth/refresh"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// EnsureDatabasePath makes sure the directory of the database file exists
// and returns the file path. DatabasePath is updated to the resolved value.
func (c *Config) EnsureDatabasePath() (string, error) {
	if c.DatabasePath == "" {
		p, err := filex.DataFile(DataDirName, DatabaseFileName)
		if err != nil {
			return "", err
		}
		c.DatabasePath = p
		return p, nil
	}
	if _, err := filex.EnsureDir(filepath.Dir(c.DatabasePath)); err != nil {
		return "", err
	}
	return c.DatabasePath, nil
}
