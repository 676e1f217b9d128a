package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerWithFieldsProducesJSON(t *testing.T) {
	l := Logger()
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithComponent("store").WithFields(Fields{"date": 20240102}).Info("partition published")

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON log line, got error: %v (line: %s)", err, buf.String())
	}
	if decoded["component"] != "store" {
		t.Errorf("expected component=store, got %v", decoded["component"])
	}
	if decoded["message"] != "partition published" {
		t.Errorf("expected message field, got %v", decoded["message"])
	}
}

func TestConfigureRejectsInvalidLevel(t *testing.T) {
	l := Logger()
	if err := l.Configure("not-a-level", "json", "stdout", 0); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestConfigureTextFormat(t *testing.T) {
	l := Logger()
	var buf bytes.Buffer
	if err := l.Configure("info", "text", "stdout", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.SetOutput(&buf)
	l.WithComponent("loader").Info("ready")
	if !strings.Contains(buf.String(), "ready") {
		t.Errorf("expected text output to contain message, got %q", buf.String())
	}
}
