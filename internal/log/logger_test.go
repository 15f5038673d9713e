package log

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLevelParsing(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := Level(in); got != want {
			t.Fatalf("Level(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewRespectsLevel(t *testing.T) {
	logger := New("error")
	if logger.GetLevel() != zerolog.ErrorLevel {
		t.Fatalf("unexpected level: %v", logger.GetLevel())
	}
}
