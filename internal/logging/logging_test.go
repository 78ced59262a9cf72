package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: WarnLevel, Output: &buf})

	logger.Debug("debug msg", nil)
	logger.Info("info msg", nil)
	logger.Warn("warn msg", nil)
	logger.Error("error msg", nil)

	out := buf.String()
	if strings.Contains(out, "debug msg") || strings.Contains(out, "info msg") {
		t.Errorf("below-threshold messages were logged: %s", out)
	}
	if !strings.Contains(out, "warn msg") || !strings.Contains(out, "error msg") {
		t.Errorf("expected warn and error messages, got: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: DebugLevel, Output: &buf})

	logger.Info("hello", map[string]interface{}{"requestId": "abc-123"})

	var entry struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry.Level != "info" || entry.Message != "hello" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Fields["requestId"] != "abc-123" {
		t.Errorf("field missing: %+v", entry.Fields)
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: DebugLevel, Output: &buf})

	child := logger.With(map[string]interface{}{"requestId": "req-1"})
	child.Info("gathering", map[string]interface{}{"component": "history"})

	out := buf.String()
	if !strings.Contains(out, "req-1") || !strings.Contains(out, "history") {
		t.Errorf("child logger dropped fields: %s", out)
	}

	// Parent must not inherit the child's fields.
	buf.Reset()
	logger.Info("plain", nil)
	if strings.Contains(buf.String(), "req-1") {
		t.Errorf("parent logger contaminated by child fields: %s", buf.String())
	}
}

func TestHumanFieldsAreDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	fields := map[string]interface{}{"z": 1, "a": 2, "m": 3}

	NewLogger(Config{Format: HumanFormat, Level: DebugLevel, Output: &a}).Info("x", fields)
	NewLogger(Config{Format: HumanFormat, Level: DebugLevel, Output: &b}).Info("x", fields)

	// Strip timestamps before comparing.
	trim := func(s string) string {
		if i := strings.Index(s, "["); i >= 0 {
			return s[i:]
		}
		return s
	}
	if trim(a.String()) != trim(b.String()) {
		t.Errorf("field ordering is not deterministic:\n%s\n%s", a.String(), b.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != DebugLevel {
		t.Error("debug not parsed")
	}
	if ParseLevel("bogus") != InfoLevel {
		t.Error("unknown level must default to info")
	}
}
