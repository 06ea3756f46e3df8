package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	previous := L()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(previous) })
	return logs
}

func TestInfoMasksAccountNumbers(t *testing.T) {
	logs := observe(t)

	Info("account deposit", Fields{
		"accountNumber":  "FR7630006000011234567890189",
		"account_number": "GB29NWBK60161331926819",
		"amount":         "100.50",
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if got := ctx["accountNumber"]; got != "***********************0189" {
		t.Fatalf("unexpected masked value %v", got)
	}
	if got := ctx["account_number"]; got != "******************6819" {
		t.Fatalf("unexpected masked value %v", got)
	}
	if got := ctx["amount"]; got != "100.50" {
		t.Fatalf("expected amount to be logged verbatim, got %v", got)
	}
}

func TestErrorAttachesError(t *testing.T) {
	logs := observe(t)

	Error("account update failed", errors.New("boom"), nil)

	entries := logs.FilterMessage("account update failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %s", entries[0].Level)
	}
	if got := entries[0].ContextMap()["error"]; got != "boom" {
		t.Fatalf("expected error field boom, got %v", got)
	}
}

func TestMaskAccountNumber(t *testing.T) {
	if got := MaskAccountNumber("1234"); got != "****" {
		t.Fatalf("expected ****, got %s", got)
	}
	if got := MaskAccountNumber("0123456789"); got != "******6789" {
		t.Fatalf("expected ******6789, got %s", got)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud", Format: "json"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := New(Config{Level: "info", Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := New(DefaultConfig()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
