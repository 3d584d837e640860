package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/prepwise/prepwise/internal/chat"
	"github.com/prepwise/prepwise/internal/client"
	"github.com/prepwise/prepwise/internal/config"
	"github.com/prepwise/prepwise/internal/tui"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive interview TUI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}
}

// runChat wires the client, cache, and coordinator into the TUI and runs it
// until exit or signal.
func runChat(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	api, err := client.New(client.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating API client: %w", err)
	}

	cache := chat.NewCache()
	coord, err := chat.NewCoordinator(api, cache, logger)
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}

	pointer, err := chat.DefaultStateFile()
	if err != nil {
		// The pointer only remembers the last active session; the TUI
		// works without it.
		logger.Warn("session state file unavailable", "error", err)
		pointer = nil
	}

	model, err := tui.New(ctx, coord, cache, api, pointer, logger)
	if err != nil {
		return fmt.Errorf("creating TUI: %w", err)
	}

	if err := tui.Run(ctx, model); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}
	return nil
}
