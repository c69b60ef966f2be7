package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/memorylane/internal/flagx"
	"github.com/dmitrijs2005/memorylane/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Empty fields
// leave the current value alone.
type JsonConfig struct {
	ServerURL   string         `json:"server_url"`
	AdminAddr   string         `json:"admin_addr"`
	AdminKey    string         `json:"admin_key"`
	SessionFile string         `json:"session_file"`
	Timeout     timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with the JSON file given by -c or -config in args.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.AdminAddr != "" {
		cfg.AdminAddr = jc.AdminAddr
	}
	if jc.AdminKey != "" {
		cfg.AdminKey = jc.AdminKey
	}
	if jc.SessionFile != "" {
		cfg.SessionFile = jc.SessionFile
	}
	if jc.Timeout.Duration > 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	return nil
}
