package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "http://127.0.0.1:9090", "-t", "10", "-d", "/tmp/h.db", "-l", "debug"},
			expected: &Config{
				ServerURL:      "http://127.0.0.1:9090",
				RequestTimeout: 10 * time.Second,
				DatabasePath:   "/tmp/h.db",
				LogLevel:       "debug",
			},
		},
		{
			name:     "unknown flags ignored",
			args:     []string{"cmd", "-x", "1", "-a", "http://h"},
			expected: &Config{ServerURL: "http://h"},
		},
		{name: "incorrect timeout", args: []string{"cmd", "-t", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
