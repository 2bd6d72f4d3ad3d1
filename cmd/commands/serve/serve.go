package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/api"
	"nathanbeddoewebdev/fleetmetrics/internal/app"
	"nathanbeddoewebdev/fleetmetrics/internal/jobmetrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the warehouse read API over HTTP",
		Long: `Start an HTTP server exposing the warehouse read side as JSON:

  GET /healthz                    warehouse ping
  GET /resources                  resources with stored data
  GET /resources/{id}             latest metadata of one resource
  GET /resources/{id}/series      daily series (?metric=, ?days=)
  GET /summary                    pivoted summary (?window=, ?resource=)
  GET /metrics                    Prometheus metrics of this process

The server stops gracefully on SIGINT or SIGTERM.

Examples:
  fleetmetrics serve
  fleetmetrics serve --addr 127.0.0.1:9090`,
		Args:         cobra.NoArgs,
		RunE:         runServe,
		SilenceUsage: true,
	}

	cmd.Flags().String("addr", "", "Listen address (default from serve.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := app.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.Config.Serve.Addr
	if cmd.Flags().Changed("addr") {
		addr, _ = cmd.Flags().GetString("addr")
	}

	wh, err := a.Warehouse()
	if err != nil {
		return err
	}
	defer wh.Close()

	metrics := jobmetrics.New().WithProcessCollectors()
	srv := &http.Server{
		Handler:           api.NewRouter(wh, metrics.Registry(), a.Log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", ln.Addr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, srv, ln, a.Log)
}

// serve runs srv on ln until ctx is done, then shuts it down.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("api shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
