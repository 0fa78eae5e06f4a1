package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "TOKEN_TTL", "AUTH_REQUIRED", "CORS_ALLOWED_ORIGINS", "BASE_CURRENCY", "SMTP_HOST"} {
		t.Setenv(key, "")
	}
	t.Setenv("PORT", "8010")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("TOKEN_TTL", "bogus")
	t.Setenv("AUTH_REQUIRED", "bogus")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("BASE_CURRENCY", "rub")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.DBDriver != DriverMemory {
		t.Errorf("DBDriver = %q", cfg.DBDriver)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want fallback 24h", cfg.TokenTTL)
	}
	if cfg.AuthRequired {
		t.Errorf("AuthRequired should fall back to false")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.BaseCurrency != "RUB" {
		t.Errorf("BaseCurrency = %q", cfg.BaseCurrency)
	}
	if cfg.StatementsEnabled() {
		t.Errorf("statements must be disabled without SMTP_HOST")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Port: "8010", DBDriver: DriverSQLite, SQLitePath: "x.db", JWTSecret: "s", TokenTTL: time.Hour, BaseCurrency: "RUB"}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"bad port", func(c *Config) { c.Port = "abc" }, false},
		{"port out of range", func(c *Config) { c.Port = "70000" }, false},
		{"unknown driver", func(c *Config) { c.DBDriver = "mongo" }, false},
		{"missing sqlite path", func(c *Config) { c.SQLitePath = "" }, false},
		{"missing postgres conn", func(c *Config) { c.DBDriver = DriverPostgres; c.DBConn = "" }, false},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, false},
		{"bad currency", func(c *Config) { c.BaseCurrency = "RUBLE" }, false},
	}
	for _, tc := range cases {
		cfg := base()
		tc.mutate(cfg)
		err := cfg.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
