package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/artwork-table/internal/web"
	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/Sternrassler/artwork-table/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the artwork table web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts.cfg)
		},
	}
	cmd.Flags().String("port", "", "listen port (env PORT)")
	return cmd
}

// newServer wires the API client into the web UI. The returned cleanup
// closes the upstream and Redis clients.
//
// The client is shared by all sessions, so it runs without a response
// cache: every page load is one upstream request and no session sees
// another session's responses.
func newServer(cfg *config.Config) (*http.Server, func(), error) {
	api, rdb, err := newAPIClient(cfg, 0)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		api.Close()
		if rdb != nil {
			rdb.Close()
		}
	}

	srv, err := web.NewServer(artwork.NewFetcher(api), web.Config{
		PageSize:        cfg.PageSize,
		SessionCapacity: cfg.SessionCapacity,
		Ready:           api.Ping,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create web server: %w", err)
	}

	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}, cleanup, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	httpServer, cleanup, err := newServer(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Int("page_size", cfg.PageSize).
			Msg("Starting artwork table server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
