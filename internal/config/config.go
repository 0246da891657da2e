// Package config loads per-service operational settings the way
// proxy-dblb/internal/config does: viper defaults, an optional config
// file, and environment variables, wired into each service's cobra
// command via a --config flag. Peer addresses are NOT part of this
// package -- those stay on the discovery file path per spec §6 and §9.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Base holds the settings every one of the four services shares.
type Base struct {
	ListenAddr        string        `mapstructure:"listen_addr"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`
	DiscoveryDir      string        `mapstructure:"discovery_dir"`
	HTTPClientTimeout time.Duration `mapstructure:"http_client_timeout"`
	RateLimitPerSec   float64       `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst    int           `mapstructure:"rate_limit_burst"`
}

// Load reads Base settings for the named service ("gatekeeper",
// "trustedhost", "proxy", "executor"), applying defaults, an optional
// config file, and environment variables prefixed CLOUD_DB_<SERVICE>.
func Load(service, configPath string) (*Base, *viper.Viper, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":5000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("discovery_dir", ".")
	v.SetDefault("http_client_timeout", 5*time.Second)
	v.SetDefault("rate_limit_per_sec", 0.0) // 0 disables rate limiting
	v.SetDefault("rate_limit_burst", 50)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("CLOUD_DB_" + service)

	var base Base
	if err := v.Unmarshal(&base); err != nil {
		return nil, nil, fmt.Errorf("config: unmarshaling %s config: %w", service, err)
	}

	return &base, v, nil
}
