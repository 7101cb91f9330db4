package telemetry

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWriteCarriesFieldsAndLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := SetLogger(zap.New(core))
	defer restore()

	Warn("schema.ensure_failed", map[string]any{"function": "create_table_user_banners", "error": "boom"})
	Info("request.complete", map[string]any{"status": 200})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %s", entries[0].Level)
	}
	ctx := entries[0].ContextMap()
	if ctx["function"] != "create_table_user_banners" || ctx["error"] != "boom" {
		t.Fatalf("unexpected fields: %v", ctx)
	}
	if entries[1].ContextMap()["status"] != int64(200) {
		t.Fatalf("unexpected status field: %v", entries[1].ContextMap()["status"])
	}
}

func TestLoggerDefaultsToNop(t *testing.T) {
	restore := SetLogger(nil)
	defer restore()

	Error("ignored", nil)
	if Logger() == nil {
		t.Fatalf("expected non-nil logger")
	}
}
