package main

import (
	"log/slog"
	"testing"

	"github.com/urfave/cli/v2"
)

func newLoggerApp() *cli.App {
	return &cli.App{
		Name: "test",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
			},
		},
		Before: setupLogger,
		Action: func(c *cli.Context) error { return nil },
	}
}

func TestSetupLoggerLevels(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"DEBUG", false},
		{"verbose", true},
		{"", true},
	}

	for _, tt := range tests {
		app := newLoggerApp()
		err := app.Run([]string{"test", "--log-level", tt.level})
		if tt.wantErr && err == nil {
			t.Errorf("level %q: expected error, got nil", tt.level)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("level %q: unexpected error: %v", tt.level, err)
		}
	}
}

func TestSetupLoggerSetsDefault(t *testing.T) {
	app := newLoggerApp()
	if err := app.Run([]string{"test", "--log-level", "error"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if slog.Default().Enabled(nil, slog.LevelInfo) {
		t.Error("expected info logging to be disabled at error level")
	}
}
