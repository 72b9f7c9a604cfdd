package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	perr "smartcamera-hub/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 8000 {
		t.Fatalf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.BrokerExchange != "smartcamera" {
		t.Fatalf("BrokerExchange = %q", cfg.BrokerExchange)
	}
	if cfg.BrokerHeartbeat != 60*time.Second || cfg.BrokerConnectTimeout != 30*time.Second {
		t.Fatalf("broker timings = %s/%s", cfg.BrokerHeartbeat, cfg.BrokerConnectTimeout)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("default environment should be development")
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("port: 9100\nbroker_url: nats://nats:4222\nhub_outbox_size: 8\nbroker_heartbeat: 15s\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9200")
	t.Setenv("HUB_ALLOW_ORIGINS", "http://a.example,http://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 9200 {
		t.Fatalf("env should win over yaml, Port = %d", cfg.Port)
	}
	if cfg.BrokerURL != "nats://nats:4222" {
		t.Fatalf("yaml should win over defaults, BrokerURL = %q", cfg.BrokerURL)
	}
	if cfg.HubOutboxSize != 8 {
		t.Fatalf("HubOutboxSize = %d, want 8", cfg.HubOutboxSize)
	}
	if cfg.BrokerHeartbeat != 15*time.Second {
		t.Fatalf("BrokerHeartbeat = %s, want 15s", cfg.BrokerHeartbeat)
	}
	if len(cfg.HubAllowOrigins) != 2 || cfg.HubAllowOrigins[1] != "http://b.example" {
		t.Fatalf("HubAllowOrigins = %v", cfg.HubAllowOrigins)
	}
	// untouched defaults survive both layers
	if cfg.BrokerExchange != "smartcamera" {
		t.Fatalf("BrokerExchange = %q", cfg.BrokerExchange)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for missing config file")
	}
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("code = %s, want Validation", perr.CodeOf(err))
	}
}

func TestLoadRejectsBadBrokerURL(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("BROKER_URL", "not-a-url")
	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for BROKER_URL without a scheme")
	}
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("code = %s, want Validation", perr.CodeOf(err))
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Port = 0 }},
		{"broker url without scheme", func(c *Config) { c.BrokerURL = "not-a-url" }},
		{"broker url empty", func(c *Config) { c.BrokerURL = "" }},
		{"broker url empty address", func(c *Config) { c.BrokerURL = "amqp://" }},
		{"exchange", func(c *Config) { c.BrokerExchange = "" }},
		{"outbox", func(c *Config) { c.HubOutboxSize = 0 }},
		{"backoff", func(c *Config) { c.BrokerBackoffMax = c.BrokerBackoffMin / 2 }},
		{"grpc port clash", func(c *Config) { c.GRPCHealthPort = c.Port }},
	}
	for _, tc := range cases {
		cfg := Defaults()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !perr.IsCode(err, perr.ErrorCodeValidation) {
			t.Fatalf("%s: code = %s, want Validation", tc.name, perr.CodeOf(err))
		}
	}

	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
