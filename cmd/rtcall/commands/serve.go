package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/haivivi/rtcall/cmd/rtcall/internal/server"
	"github.com/haivivi/rtcall/pkg/rtmetrics"
)

var (
	serveFlags sessionFlags
	serveAddr  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control surface",
	Long: `Run an HTTP server that starts and ends calls on request.

Endpoints:
  POST /call      start a call (409 while one is live)
  POST /hangup    end the current call
  GET  /status    state, status line, session id, uptime
  GET  /history   conversation items of the current call
  GET  /metrics   Prometheus metrics
  GET  /healthz   liveness

Examples:
  rtcall serve --addr :8086 -i prompt.ogg --loop
  curl -X POST localhost:8086/call`,
	RunE: runServe,
}

func init() {
	serveFlags.register(serveCmd.Flags())
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8086", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, err := resolveContext()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := rtmetrics.NewMetrics(reg, "rtcall")
	tracker := server.NewTracker(nil)

	engine, _, err := serveFlags.newEngine(ctx, metrics, tracker)
	if err != nil {
		return err
	}

	logger := slog.Default().With("component", "http")
	srv := server.New(engine, tracker,
		server.WithMetrics(rtmetrics.Handler(reg)),
		server.WithTimeout(serveFlags.negotiationTimeout(ctx)),
		server.WithLogger(logger),
	)
	httpServer := &http.Server{
		Addr:              serveAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", serveAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		engine.HangUp()
		return err
	case <-sigCtx.Done():
	}

	logger.Info("shutting down")
	engine.HangUp()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
