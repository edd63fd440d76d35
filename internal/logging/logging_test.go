package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("console", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")
	logger.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}

func TestNewJSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New("json", "debug", &buf), "inspector")

	logger.Debug("opened key", zap.String(KeyLocation, `HKLM\SOFTWARE`))
	logger.Sync()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry[KeyComponent] != "inspector" {
		t.Errorf("component = %v, want inspector", entry[KeyComponent])
	}
	if entry[KeyLocation] != `HKLM\SOFTWARE` {
		t.Errorf("location = %v", entry[KeyLocation])
	}
	if entry["msg"] != "opened key" {
		t.Errorf("msg = %v", entry["msg"])
	}
}

func TestComponentNilLogger(t *testing.T) {
	logger := Component(nil, "audit")
	logger.Error("should not panic")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" INFO ":  zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.WarnLevel,
		"verbose": zapcore.WarnLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
