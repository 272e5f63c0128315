package db

import (
	"testing"
	"time"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.MaxConns != 8 {
		t.Fatalf("MaxConns = %d, want 8", cfg.MaxConns)
	}
	if cfg.MinConns != 0 {
		t.Fatalf("MinConns = %d, want 0", cfg.MinConns)
	}
	if cfg.MaxConnLifetime != time.Hour {
		t.Fatalf("MaxConnLifetime = %s, want 1h", cfg.MaxConnLifetime)
	}
}

func TestConfigExplicitValuesKept(t *testing.T) {
	cfg := Config{MaxConns: 20, MinConns: 2, MaxConnLifetime: 30 * time.Minute}.withDefaults()
	if cfg.MaxConns != 20 || cfg.MinConns != 2 || cfg.MaxConnLifetime != 30*time.Minute {
		t.Fatalf("explicit values overridden: %+v", cfg)
	}
}

func TestConfigMinAboveMaxReset(t *testing.T) {
	cfg := Config{MaxConns: 4, MinConns: 10}.withDefaults()
	if cfg.MinConns != 0 {
		t.Fatalf("MinConns = %d, want reset to 0", cfg.MinConns)
	}
}
