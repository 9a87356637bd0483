package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, slog.LevelInfo)

	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Info("test message", slog.String("key", "value"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}

	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
	if entry["service"] != "storefront" {
		t.Errorf("service = %q, want %q", entry["service"], "storefront")
	}
}

func TestSetup_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, slog.LevelWarn)

	l.Info("hidden")
	l.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Infoレベルのログは出力されないべき")
	}
	if !strings.Contains(out, "visible") {
		t.Error("Warnレベルのログが出力されていない")
	}
}

func TestSetup_CartAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, slog.LevelInfo)

	l.Info("cart updated",
		slog.String("cart_key", "p1_red_L"),
		slog.Int("quantity", 2),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if entry["cart_key"] != "p1_red_L" {
		t.Errorf("cart_key = %q, want %q", entry["cart_key"], "p1_red_L")
	}
	if entry["quantity"] != float64(2) {
		t.Errorf("quantity = %v, want %v", entry["quantity"], 2)
	}
}

func TestSetupDefault_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	SetupDefault(&buf)
	defer SetLevel(slog.LevelInfo)

	slog.Debug("before")
	SetLevel(slog.LevelDebug)
	slog.Debug("after", slog.String("test_key", "test_val"))

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Error("デフォルトのInfoレベルではDebugログは出力されないべき")
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v\nraw: %s", err, out)
	}
	if entry["msg"] != "after" {
		t.Errorf("msg = %q, want %q", entry["msg"], "after")
	}
	if entry["test_key"] != "test_val" {
		t.Errorf("test_key = %q, want %q", entry["test_key"], "test_val")
	}
}
