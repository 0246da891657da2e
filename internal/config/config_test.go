package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, _, err := Load("gatekeeper", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":5000" {
		t.Errorf("ListenAddr = %q, want :5000", cfg.ListenAddr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.RateLimitPerSec != 0 {
		t.Errorf("RateLimitPerSec = %v, want 0 (disabled) by default", cfg.RateLimitPerSec)
	}
}

func TestLoadMissingConfigFileErrors(t *testing.T) {
	if _, _, err := Load("proxy", "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected an error for an unreadable config file")
	}
}
