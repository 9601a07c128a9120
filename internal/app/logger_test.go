package app

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestLoggerInlinesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Info("session started", map[string]interface{}{"session": "s1"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("line is not json: %v (%q)", err, buf.String())
	}
	if entry["level"] != "info" || entry["msg"] != "session started" {
		t.Fatalf("entry = %v", entry)
	}
	if entry["session"] != "s1" {
		t.Fatalf("field not inlined: %v", entry)
	}
	if entry["ts"] == "" {
		t.Fatalf("timestamp missing: %v", entry)
	}
}

func TestLoggerFieldsCannotShadowReservedKeys(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Error("poll failed", map[string]interface{}{"level": "fake", "msg": "fake"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("line is not json: %v", err)
	}
	if entry["level"] != "error" || entry["msg"] != "poll failed" {
		t.Fatalf("reserved keys clobbered: %v", entry)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Info("no sink", nil)
	l.Error("no sink", nil)
	NewLogger(nil).Info("nil writer", nil)
}
