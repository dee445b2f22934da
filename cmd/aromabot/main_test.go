package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aromabot/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLogger_TeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aromabot.log")
	closer, err := setupLogger(config.GeneralConfig{LogLevel: "error", LogFile: path})
	if err != nil {
		t.Fatal(err)
	}
	defer slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	logger.Info("dropped below level")
	logger.Error("catalog unreachable", "backend", "http")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "catalog unreachable") || strings.Contains(out, "dropped below level") {
		t.Fatalf("unexpected log file contents: %q", out)
	}
}

func TestBuildStack_LogDelivery(t *testing.T) {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := config.Defaults()
	cfg.Catalog.DBPath = filepath.Join(t.TempDir(), "catalog.db")
	cfg.Delivery.Provider = "log"
	cfg.Escalation = config.EscalationConfig{Enabled: true, Recipient: "5511000000000"}

	st, err := buildStack(t.Context(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if st.reply.Name() != "log" || st.escalation != st.reply {
		t.Fatalf("escalation should reuse the reply provider, got %s/%s", st.reply.Name(), st.escalation.Name())
	}
}
