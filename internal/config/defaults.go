package config

import "time"

// DefaultMaxBodyBytes bounds request bodies at 25 MiB.
const DefaultMaxBodyBytes int64 = 25 << 20

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	// Enabled and WatchConfig default to true when unset (nil).
	if cfg.Metrics.Enabled == nil {
		t := true
		cfg.Metrics.Enabled = &t
	}
	if cfg.WatchConfig == nil {
		t := true
		cfg.WatchConfig = &t
	}
}
