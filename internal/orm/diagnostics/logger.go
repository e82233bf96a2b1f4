package diagnostics

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrWarningAsError is wrapped by every WarningError
var ErrWarningAsError = errors.New("warning configured as error")

// WarningError is returned when an event configured with BehaviorError is raised
type WarningError struct {
	Event   EventID
	Message string
}

// Error implements the error interface
func (e *WarningError) Error() string {
	return fmt.Sprintf("%s: %s", e.Event, e.Message)
}

// Unwrap returns ErrWarningAsError
func (e *WarningError) Unwrap() error {
	return ErrWarningAsError
}

// Logger routes diagnostic events to a zap logger and applies the configured
// warning behavior per event ID. A nil *Logger drops every event.
type Logger struct {
	log                  *zap.Logger
	sensitiveDataLogging bool

	mu        sync.RWMutex
	behaviors map[int]WarningBehavior
}

// Option configures a Logger
type Option func(*Logger)

// WithZap sets the underlying zap logger
func WithZap(log *zap.Logger) Option {
	return func(l *Logger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithBehavior overrides the behavior of one event
func WithBehavior(event EventID, behavior WarningBehavior) Option {
	return func(l *Logger) {
		l.behaviors[event.ID] = behavior
	}
}

// WithSensitiveDataLogging allows key and seed values to appear in messages
func WithSensitiveDataLogging(enabled bool) Option {
	return func(l *Logger) {
		l.sensitiveDataLogging = enabled
	}
}

// NewLogger creates a diagnostics logger. Without WithZap events go to a no-op logger.
func NewLogger(opts ...Option) *Logger {
	l := &Logger{
		log:       zap.NewNop(),
		behaviors: make(map[int]WarningBehavior),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Zap returns the underlying zap logger
func (l *Logger) Zap() *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.log
}

// SensitiveDataLoggingEnabled reports whether values may be included in messages
func (l *Logger) SensitiveDataLoggingEnabled() bool {
	return l != nil && l.sensitiveDataLogging
}

// SetBehavior overrides the behavior of one event
func (l *Logger) SetBehavior(event EventID, behavior WarningBehavior) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.behaviors[event.ID] = behavior
}

// Behavior returns the effective behavior for def
func (l *Logger) Behavior(def EventDefinition) WarningBehavior {
	if l == nil {
		return BehaviorIgnore
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if behavior, ok := l.behaviors[def.ID]; ok {
		return behavior
	}
	return def.DefaultBehavior
}

// Log raises an event. It returns a *WarningError when the event is
// configured as an error and nil otherwise.
func (l *Logger) Log(def EventDefinition, args ...interface{}) error {
	switch l.Behavior(def) {
	case BehaviorIgnore:
		return nil
	case BehaviorError:
		return &WarningError{Event: def.EventID, Message: def.Message(args...)}
	}

	if ce := l.log.Check(def.Level, def.Message(args...)); ce != nil {
		ce.Write(
			zap.Int("event_id", def.ID),
			zap.String("event_name", def.Name),
		)
	}
	return nil
}
