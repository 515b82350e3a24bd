// Package logging builds the process logger. Each subsystem gets a named
// zap logger so log lines are attributable; verbose mode only lowers the
// level to debug, it never changes behavior.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Categories used across the engine.
const (
	CategoryLists    = "lists"
	CategoryCommands = "commands"
	CategoryWatch    = "watch"
	CategoryState    = "state"
)

// New constructs the root logger. Console encoding, stderr, debug level when
// verbose.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}
