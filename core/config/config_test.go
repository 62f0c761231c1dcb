package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		Database: DatabaseConfig{
			Host: "localhost",
			Port: "5432",
			User: "pointify",
			Name: "pointify",
		},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want longpoll default", cfg.Telegram.RunMode)
	}
	if cfg.Database.SSLMode != "disable" {
		t.Fatalf("sslmode = %q", cfg.Database.SSLMode)
	}
	if cfg.Database.MaxConnections != 10 {
		t.Fatalf("max connections = %d", cfg.Database.MaxConnections)
	}
	if cfg.Points.TopLimit != defaultTopLimit {
		t.Fatalf("top limit = %d, want %d", cfg.Points.TopLimit, defaultTopLimit)
	}
	if cfg.Points.MaxAmount != defaultMaxAmount {
		t.Fatalf("max amount = %d, want %d", cfg.Points.MaxAmount, defaultMaxAmount)
	}
	if cfg.Points.SightingCredit != 0 {
		t.Fatalf("sighting credit = %d, want 0", cfg.Points.SightingCredit)
	}
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	if err := Normalize(cfg); err == nil {
		t.Fatal("missing token accepted")
	}
}

func TestNormalizeRequiresDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	err := Normalize(cfg)
	if err == nil {
		t.Fatal("missing database host accepted")
	}
	if !strings.Contains(err.Error(), "host") {
		t.Fatalf("err = %v, want a host complaint", err)
	}
}

func TestNormalizeWebhookMode(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "webhook"
	if err := Normalize(cfg); err == nil {
		t.Fatal("webhook mode without url/listen/port accepted")
	}

	cfg.Webhook = WebhookConfig{URL: "https://bot.example.com/hook", Listen: "0.0.0.0", Port: 8443}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestNormalizePollingAlias(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "Polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want longpoll", cfg.Telegram.RunMode)
	}
}

func TestNormalizeRejectsNegativePoints(t *testing.T) {
	cfg := validConfig()
	cfg.Points.SightingCredit = -1
	if err := Normalize(cfg); err == nil {
		t.Fatal("negative sighting credit accepted")
	}
}
