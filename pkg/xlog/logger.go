// Package xlog provides the structured logger used across xfeed's components.
package xlog

import "go.uber.org/zap"

// New returns a production logger, or a development logger (human-readable,
// debug level) when debug is true.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Nop returns a logger that discards everything, for components constructed
// without an explicit logger (tests, library callers that don't care).
func Nop() *zap.Logger {
	return zap.NewNop()
}

// OrNop returns l, or a no-op logger if l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return Nop()
	}
	return l
}
