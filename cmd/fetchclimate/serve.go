package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/fetchclimate-client/internal/adapter/http"
	"github.com/couchcryptid/fetchclimate-client/internal/observability"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve climate queries, health checks and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root, observability.NewMetrics(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			var opts []httpadapter.Option
			if a.places != nil {
				opts = append(opts, httpadapter.WithPlaces(a.places))
			}
			srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.client, a.client, a.logger, opts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, srv, a)
		},
	}
}

// serve runs srv until ctx is cancelled, then drains it within the
// configured shutdown timeout.
func serve(ctx context.Context, srv *httpadapter.Server, a *app) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	a.logger.Info("shutdown complete")
	return err
}
