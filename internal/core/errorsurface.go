package core

import (
	"log/slog"
	"sync"
)

// ErrorSurface holds the single user-visible error message. A new report
// replaces the previous one; there is no history.
type ErrorSurface struct {
	mu       sync.RWMutex
	message  string
	onChange func()
}

func NewErrorSurface(onChange func()) *ErrorSurface {
	return &ErrorSurface{onChange: onChange}
}

func (e *ErrorSurface) ReportError(message string) {
	e.mu.Lock()
	e.message = message
	e.mu.Unlock()

	slog.Warn("error reported", "message", message)
	e.notify()
}

func (e *ErrorSurface) ClearError() {
	e.mu.Lock()
	changed := e.message != ""
	e.message = ""
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}

// Message returns the current error, or "" when there is none.
func (e *ErrorSurface) Message() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.message
}

func (e *ErrorSurface) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}
