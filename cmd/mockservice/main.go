// Command mockservice serves the climate wire protocol with deterministic
// synthetic values, for local development against the fetchclimate CLI.
//
// Usage:
//
//	go run ./cmd/mockservice --addr :8081 --pending 2 --wait 3s
//	FETCHCLIMATE_URL=http://localhost:8081 fetchclimate fetch FC_TEMPERATURE --lat 10 --lon 20
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/fetchclimate-client/internal/mockservice"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr       string
		pending    int
		wait       time.Duration
		resendFull bool
		failure    string
	)
	cmd := &cobra.Command{
		Use:          "mockservice",
		Short:        "Run a fake FetchClimate compute service",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			opts := []mockservice.Option{mockservice.WithLogger(logger)}
			if pending > 0 {
				opts = append(opts, mockservice.WithPending(pending, wait, resendFull))
			}
			if failure != "" {
				opts = append(opts, mockservice.WithFailure(failure))
			}

			mux := http.NewServeMux()
			mux.Handle("POST /", mockservice.New(opts...))
			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("shutdown error", "error", err)
				}
			}()

			logger.Info("mock service listening", "addr", addr, "pending_polls", pending, "wait", wait)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&addr, "addr", ":8081", "listen address")
	fs.IntVar(&pending, "pending", 0, "answer each new request with this many pending statuses first")
	fs.DurationVar(&wait, "wait", 2*time.Second, "calculation time hint sent with each pending status")
	fs.BoolVar(&resendFull, "resend-full", false, "ask clients to resend the full request instead of the status")
	fs.StringVar(&failure, "fail", "", "fail every request with this message")
	return cmd
}
