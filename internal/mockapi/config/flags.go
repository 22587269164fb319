package config

import (
	"flag"
	"os"
	"time"

	"github.com/g1appdev/hubbits/internal/flagx"
)

// parseFlags populates Config from command-line flags.
//
// Supported flags:
//
//	-a string   bind address (e.g., ":8080")
//	-m string   metrics path
//	-s string   JWT HMAC secret key
//	-t int      access token lifetime, seconds
//	-l string   log level
//	-raw        answer login with a bare token
//	-rotate     rotate refresh tokens
//	-seed       create demo data (use -seed=false to start empty)
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-s", "-t", "-l", "-raw", "-rotate", "-seed"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Address, "a", cfg.Address, "address and port to run server")
	fs.StringVar(&cfg.MetricsPath, "m", cfg.MetricsPath, "metrics path")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	ttl := fs.Int("t", int(cfg.AccessTokenTTL.Seconds()), "access token lifetime (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.RawLogin, "raw", cfg.RawLogin, "answer login with a bare token")
	fs.BoolVar(&cfg.RotateRefresh, "rotate", cfg.RotateRefresh, "rotate refresh tokens")
	fs.BoolVar(&cfg.Seed, "seed", cfg.Seed, "create demo data")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.AccessTokenTTL = time.Duration(*ttl) * time.Second
}
