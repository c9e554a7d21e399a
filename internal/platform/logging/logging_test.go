package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for raw, want := range tests {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestSetupWritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Options{Level: "warn", Output: &buf})

	logger.Info().Msg("hidden")
	logger.Warn().Str("component", "settings").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, `"component":"settings"`) || !strings.Contains(out, "shown") {
		t.Fatalf("warn line missing fields: %q", out)
	}
}
