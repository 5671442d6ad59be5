package internal

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		value string
		want  LogLevel
	}{
		{"ERROR", LogLevelError},
		{"warn", LogLevelWarn},
		{" Debug ", LogLevelDebug},
		{"INFO", LogLevelInfo},
		{"", LogLevelInfo},
		{"nonsense", LogLevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.value); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	logger := NewLogger(LogLevelWarn)
	logger.Debug("hidden detail")
	logger.Info("hidden progress")
	logger.Warn("anomaly %d", 7)
	logger.Error("boom")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages above the configured level leaked: %q", out)
	}
	if !strings.Contains(out, "[WARN] anomaly 7") {
		t.Errorf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "[ERROR] boom") {
		t.Errorf("error message missing: %q", out)
	}
}
