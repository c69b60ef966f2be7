// Package config loads settings for the capsulectl command-line client.
//
// Sources, later ones win: built-in defaults, MEMORYLANE_* environment
// variables, a JSON file given with -c or -config, then command-line flags.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for capsulectl.
//
// Fields:
//   - ServerURL: base URL of the HTTP API.
//   - AdminAddr: host:port of the admin gRPC endpoint.
//   - AdminKey: shared key for admin calls.
//   - SessionFile: where login stores the issued tokens.
//   - Timeout: per-command deadline.
type Config struct {
	ServerURL   string
	AdminAddr   string
	AdminKey    string
	SessionFile string
	Timeout     time.Duration
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.AdminAddr = "127.0.0.1:50051"
	c.SessionFile = defaultSessionFile()
	c.Timeout = 30 * time.Second
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "capsulectl-session.json"
	}
	return filepath.Join(dir, "memorylane", "session.json")
}

func parseEnv(c *Config) {
	if v := os.Getenv("MEMORYLANE_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("MEMORYLANE_ADMIN_ADDR"); v != "" {
		c.AdminAddr = v
	}
	if v := os.Getenv("MEMORYLANE_ADMIN_KEY"); v != "" {
		c.AdminKey = v
	}
	if v := os.Getenv("MEMORYLANE_SESSION_FILE"); v != "" {
		c.SessionFile = v
	}
}

// LoadConfig applies defaults, environment and the JSON file named in args.
// Flags are bound separately with BindFlags so the command parser owns them.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
