// Package logging builds the structured logger the daemon and its
// subsystems share, replacing node.* call sites' fmt.Printf-to-stdout
// convention with a level-aware zap logger (the pack's structured
// logging library; the teacher client itself only wraps log/slog, so
// this is modeled after blinklabs-io-shai and bsc-erigon's zap.org
// dependency rather than copied from a call site).
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-shaped zap logger at the given level
// ("debug", "info", "warn", "error"), writing JSON lines to stderr.
// An unrecognized level falls back to info rather than failing
// startup over a logging misconfiguration.
func New(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build zap logger: %w", err)
	}
	return logger, nil
}

// Must builds a logger or panics, for use at process startup where
// there is no sensible fallback.
func Must(level string) *zap.Logger {
	l, err := New(level)
	if err != nil {
		panic(err)
	}
	return l
}
