package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"
)

func captureStdout(t *testing.T, fn func()) []byte {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	_ = w.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("read output: %v", err)
	}
	return buf.Bytes()
}

func TestWarnRendersErrorsAsStrings(t *testing.T) {
	out := captureStdout(t, func() {
		Warn("document.file_cleanup_failed", map[string]any{
			"document_id": "doc-1",
			"error":       errors.New("permission denied"),
		})
	})

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(out), &payload); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected level warn, got %v", payload["level"])
	}
	if payload["error"] != "permission denied" {
		t.Fatalf("expected error string, got %v", payload["error"])
	}
	if payload["msg"] != "document.file_cleanup_failed" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
}

func TestReservedKeysWin(t *testing.T) {
	out := captureStdout(t, func() {
		Info("ingestion.status", map[string]any{"level": "bogus"})
	})

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(out), &payload); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if payload["level"] != "info" {
		t.Fatalf("expected level info, got %v", payload["level"])
	}
}
