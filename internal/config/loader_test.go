package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_PG_HOST", "db.internal")

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "host: ${TEST_PG_HOST:localhost}", "host: db.internal"},
		{"default used", "host: ${TEST_PG_MISSING:localhost}", "host: localhost"},
		{"empty default", "password: ${TEST_PG_MISSING:}", "password: "},
		{"no default kept", "host: ${TEST_PG_MISSING}", "host: ${TEST_PG_MISSING}"},
		{"plain text", "port: 5432", "port: 5432"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := expandEnv(tc.in)
			if got != tc.want {
				t.Fatalf("expandEnv(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal defaults: %v", err)
	}

	if cfg.App.Name != "serial-novel-api" {
		t.Fatalf("unexpected app name: %s", cfg.App.Name)
	}
	if cfg.Server.HTTP.Port != 8080 {
		t.Fatalf("unexpected port: %d", cfg.Server.HTTP.Port)
	}
	if cfg.Server.HTTP.FirstChapterTimeout.Minutes() != 10 {
		t.Fatalf("unexpected first chapter timeout: %v", cfg.Server.HTTP.FirstChapterTimeout)
	}
	if cfg.Generation.Retry.MaxAttempts != 3 {
		t.Fatalf("unexpected retry attempts: %d", cfg.Generation.Retry.MaxAttempts)
	}
	if cfg.Generation.Retry.Multiplier != 2.0 {
		t.Fatalf("unexpected retry multiplier: %v", cfg.Generation.Retry.Multiplier)
	}
	if cfg.Generation.ContextWindowRunes != 2000 {
		t.Fatalf("unexpected context window: %d", cfg.Generation.ContextWindowRunes)
	}
	if cfg.Generation.SingleChapterThreshold != 4000 {
		t.Fatalf("unexpected single chapter threshold: %d", cfg.Generation.SingleChapterThreshold)
	}
	if !cfg.Security.RateLimit.Enabled {
		t.Fatal("rate limit should default to enabled")
	}
}
