// Package cmd provides CLI commands for prepwise.
//
// Commands:
//   - (default) / chat: interactive interview TUI
//   - sessions: list, create, complete, and delete interview sessions
//   - send: one-shot text or audio answer without the TUI
//   - serve: HTTP API server backing the client commands
//
// Signal handling and graceful shutdown are implemented for all commands
// via context cancellation.
package cmd

import (
	"log/slog"
	"os"

	"github.com/prepwise/prepwise/internal/log"
)

// Execute is the main entry point for the prepwise CLI application.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	return newRootCmd().Execute()
}
