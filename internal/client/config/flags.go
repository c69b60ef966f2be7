package config

import (
	"github.com/spf13/pflag"
)

// BindFlags registers the client flags on fs with cfg's current values as
// defaults, so parsed flags override every earlier source.
//
//	--server string        HTTP API base URL
//	--admin-addr string    admin gRPC address
//	--admin-key string     admin API key
//	--session string       session file path
//	--timeout duration     per-command deadline
//	-c, --config string    JSON config file (read before flags)
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "HTTP API base URL")
	fs.StringVar(&cfg.AdminAddr, "admin-addr", cfg.AdminAddr, "admin gRPC address")
	fs.StringVar(&cfg.AdminKey, "admin-key", cfg.AdminKey, "admin API key")
	fs.StringVar(&cfg.SessionFile, "session", cfg.SessionFile, "session file path")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-command deadline")
	fs.StringP("config", "c", "", "JSON config file")
}
