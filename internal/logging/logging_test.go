package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
		ok   bool
	}{
		{"trace", zerolog.TraceLevel, true},
		{"DEBUG", zerolog.DebugLevel, true},
		{" info ", zerolog.InfoLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"error", zerolog.ErrorLevel, true},
		{"verbose", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
	}
	for _, tc := range cases {
		got, ok := ParseLevel(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseLevel(%q) = (%v, %t), want (%v, %t)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestInitLoggerHonorsEnvOverride(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogNoColor, "1")
	logger := InitLogger("linkctl-test", "error")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("level = %v, want debug", logger.GetLevel())
	}
}
