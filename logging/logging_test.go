package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(FormatJSON, "debug", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("flash complete", "device", 42)

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "flash complete" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["device"] != float64(42) {
		t.Errorf("device = %v", entry["device"])
	}
}

func TestNewTextLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(FormatText, "info", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug("hidden")
	l.Error("visible", "stage", "upload")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug output leaked at info level: %q", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "upload") {
		t.Errorf("missing error output: %q", out)
	}
}

func TestNewErrors(t *testing.T) {
	var buf bytes.Buffer
	if _, err := New("xml", "info", &buf); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := New(FormatJSON, "loud", &buf); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(FormatText, "loud", &buf); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) != Nop {
		t.Error("OrNop(nil) should be Nop")
	}
	l, _ := New(FormatText, "", &bytes.Buffer{})
	if OrNop(l) != l {
		t.Error("OrNop should keep a non-nil logger")
	}
	Nop.Info("ignored", "k", "v")
}
