package common

import (
	"errors"
	"testing"
)

type pauses map[string]bool

func (p pauses) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	view := pauses{"loan": true}
	if err := Guard(view, "loan"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if err := Guard(view, "assets"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Guard(nil, "loan"); err != nil {
		t.Fatalf("nil view must not block: %v", err)
	}
}
