package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/warren/internal/channel"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the warren HTTP API until interrupted.

Endpoints:
  GET  /healthz
  GET  /v1/strategies
  POST /v1/users/{userID}/start
  POST /v1/users/{userID}/messages   {"text": "..."}
  POST /v1/users/{userID}/commands   {"text": "/switch coordinate"}
  PUT  /v1/users/{userID}/strategy   {"strategy": "collaborate"}
  GET  /v1/users/{userID}/status`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides http.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(runCtx, cfg, configDir(configPath), logger)
	if err != nil {
		return printer.Error("failed to start", err.Error(), nil)
	}
	defer a.close()

	// A whole collaborate chain has to fit in one response
	writeTimeout := cfg.Orchestrator.SpecialistTimeout*time.Duration(a.registry.Len()) + 10*time.Second
	srv := channel.NewHTTPServer(cfg.HTTP.Addr, channel.NewHTTPHandler(a.orch, logger), writeTimeout)

	if mem, ok := a.store.(*session.MemoryStore); ok && cfg.Sessions.IdleEviction > 0 {
		go evictIdle(runCtx, mem, cfg.Sessions.IdleEviction)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server_started",
		zap.String("component", "cli"),
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("session_backend", cfg.Sessions.Backend),
		zap.Int("specialists", a.registry.Len()),
	)
	printer.Success("warren listening on %s\n", cfg.HTTP.Addr)

	select {
	case sig := <-sigCh:
		printer.Info("Received signal %v, shutting down gracefully...\n", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return printer.Error("server failed", err.Error(), nil)
		}
		return nil
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	printer.Info("warren stopped\n")
	return nil
}

// evictIdle drops idle in-memory sessions until ctx is done.
func evictIdle(ctx context.Context, store *session.MemoryStore, maxIdle time.Duration) {
	interval := maxIdle / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.EvictIdle(maxIdle); n > 0 {
				logger.Info("sessions_evicted",
					zap.String("component", "cli"),
					zap.Int("evicted", n),
					zap.Int("remaining", store.Len()),
				)
			}
		}
	}
}
