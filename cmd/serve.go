package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/prepwise/prepwise/api"
	"github.com/prepwise/prepwise/db"
	"github.com/prepwise/prepwise/internal/blob"
	"github.com/prepwise/prepwise/internal/config"
	"github.com/prepwise/prepwise/internal/interviewer"
	"github.com/prepwise/prepwise/internal/session"
)

func newServeCmd() *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (host:port), overrides listen_addr config")

	return serveCmd
}

// runServe initializes storage, blob store, and the AI interviewer, then
// runs the HTTP server until signal.
func runServe(parent context.Context, addrFlag string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr := cfg.ListenAddr
	if addrFlag != "" {
		addr = addrFlag
	}
	if err = validateAddr(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting HTTP API server", "version", AppVersion)

	if err = db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	if err = pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging postgres: %w", err)
	}

	blobs, err := blob.New(ctx, cfg.Blob, logger)
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}
	if err = blobs.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensuring audio bucket: %w", err)
	}

	responder, err := interviewer.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating interviewer: %w", err)
	}

	store := session.New(pool, logger)

	server := api.NewServer(pool, store, blobs, responder, api.Config{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustProxy:     cfg.TrustProxy,
	}, logger)

	return server.Run(ctx, addr)
}
