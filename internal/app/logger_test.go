package app

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLoggerLevels(t *testing.T) {
	ctx := context.Background()

	dev := NewLogger(&Config{AppEnv: "development"})
	if !dev.Enabled(ctx, slog.LevelDebug) {
		t.Fatalf("development logger should enable debug")
	}

	prod := NewLogger(&Config{AppEnv: "production", LogFormat: "json"})
	if prod.Enabled(ctx, slog.LevelDebug) {
		t.Fatalf("production logger should not enable debug")
	}
	if !prod.Enabled(ctx, slog.LevelInfo) {
		t.Fatalf("production logger should enable info")
	}
}
