package utils

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogHelpers_WriteLevelsAndRunID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))
	defer InitLogger("info", "console")

	WithRunID("run-123")
	LogDebug("hidden %d", 1)
	LogWarn("バッチ %d 件", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (debug filtered), got %d: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["message"] != "バッチ 3 件" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["run_id"] != "run-123" {
		t.Errorf("run_id = %v", entry["run_id"])
	}
}
