package viewer

import "dolist/internal/utils"

// Logger is the subset of utils.Logger the viewer writes to.
// utils.BackgroundLogger satisfies it as well.
type Logger interface {
	Debug(msgOrFormat string, args ...interface{})
	Warn(msgOrFormat string, args ...interface{})
	Error(msgOrFormat string, args ...interface{})
}

// UnknownKindPolicy decides what happens to a task whose kind the worker
// does not recognize.
type UnknownKindPolicy int

const (
	// UnknownKindFail completes the task with ErrUnknownTaskKind.
	UnknownKindFail UnknownKindPolicy = iota
	// UnknownKindHang drops the task without completing it. Anyone waiting
	// on it blocks until their context ends.
	UnknownKindHang
)

// String returns the config name of the policy.
func (p UnknownKindPolicy) String() string {
	if p == UnknownKindHang {
		return "hang"
	}
	return "fail"
}

// ParseUnknownKindPolicy maps a config value to a policy. Empty means fail.
func ParseUnknownKindPolicy(s string) (UnknownKindPolicy, bool) {
	switch s {
	case "", "fail":
		return UnknownKindFail, true
	case "hang":
		return UnknownKindHang, true
	}
	return UnknownKindFail, false
}

// ErrorHandler receives every failed task from the worker goroutine.
type ErrorHandler func(kind Kind, err error)

// Option configures a Viewer.
type Option func(*Viewer)

// WithLogger sets the logger used for worker diagnostics.
func WithLogger(l Logger) Option {
	return func(v *Viewer) {
		if l != nil {
			v.log = l
		}
	}
}

// WithErrorHandler registers fn to be called for each failed task.
// It runs on the worker goroutine without the viewer lock held, so it may
// read viewer snapshots but must not block on viewer waits.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(v *Viewer) {
		v.onError = fn
	}
}

// WithUnknownKindPolicy sets the policy for unrecognized task kinds.
func WithUnknownKindPolicy(p UnknownKindPolicy) Option {
	return func(v *Viewer) {
		v.unknownPolicy = p
	}
}

func defaultLogger() Logger {
	return utils.GetLogger()
}
