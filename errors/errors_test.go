package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestNewAnnotatesOrigin(t *testing.T) {
	err := New("boom %d", 7)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "errors_test.go:") {
		t.Errorf("missing origin annotation: %q", msg)
	}
	if !strings.Contains(msg, "boom 7") {
		t.Errorf("missing formatted message: %q", msg)
	}
}

func TestWrapf(t *testing.T) {
	base := errors.New("connection refused")
	err := Wrapf(base, "contacting agent at %s", "http://localhost:8000")

	if !errors.Is(err, base) {
		t.Error("wrapped error must unwrap to its cause")
	}
	msg := err.Error()
	if !strings.Contains(msg, "contacting agent") || !strings.Contains(msg, "connection refused") {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(msg, "errors_test.go:") {
		t.Errorf("missing origin annotation: %q", msg)
	}
}

func TestWrapfNil(t *testing.T) {
	if err := Wrapf(nil, "context"); err != nil {
		t.Errorf("Wrapf(nil) = %v, want nil", err)
	}
}
