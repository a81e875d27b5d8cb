package common

import (
	"errors"
	"fmt"
)

// ErrModulePaused is returned by Guard when an operator has halted a module.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the pause switches persisted in state.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when module is paused in p.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%s: %w", module, ErrModulePaused)
	}
	return nil
}
