package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"loud", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "playerd.log")

	closer, err := Setup("debug", path)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	logger := For("test")
	logger.Info().Str("track", "t1").Msg("hello")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"component":"test"`) || !strings.Contains(line, `"track":"t1"`) {
		t.Errorf("Unexpected log line: %s", line)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %v", zerolog.GlobalLevel())
	}

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("Expected warn level, got %v", zerolog.GlobalLevel())
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if _, err := Setup("chatty", ""); err == nil {
		t.Error("Expected error for unknown level")
	}
}
