package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSONLoggerAddsServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLoggerTo(&buf, "worker", "warn")

	logger.Info("dropped")
	logger.Warn("analysis_dispatch_failed", "assignment_id", 7)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "analysis_dispatch_failed" || entry["service"] != "worker" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if parseLevel("verbose").String() != "INFO" {
		t.Fatalf("unexpected default level")
	}
	if parseLevel(" Warning ").String() != "WARN" {
		t.Fatalf("expected warn level")
	}
}
