// Command weave runs the playback core as a standalone process: a Player,
// its Compositor window, and the HTTP control API a UI host talks to.
// Grounded on cmd/prism/main.go's app-struct wiring (errgroup-supervised
// goroutines, signal-driven shutdown, env-configured addresses).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/weave/api"
	"github.com/zsiec/weave/compositor"
	"github.com/zsiec/weave/player"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Release: version}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	apiAddr := envOr("API_ADDR", ":8080")
	canvasW := envIntOr("CANVAS_WIDTH", 1280)
	canvasH := envIntOr("CANVAS_HEIGHT", 720)

	registry := prometheus.NewRegistry()
	metrics := player.NewMetrics(registry)

	comp := compositor.New(compositor.Config{Width: canvasW, Height: canvasH})
	pl := player.New(player.Config{Compositor: comp, Metrics: metrics})
	defer pl.Close()

	srv := api.New(api.Config{Player: pl, Registry: registry})
	httpSrv := &http.Server{Addr: apiAddr, Handler: srv.Handler()}

	slog.Info("weave starting", "version", version, "api", apiAddr, "canvas", fmt.Sprintf("%dx%d", canvasW, canvasH))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return comp.Start("weave")
	})

	g.Go(func() error {
		slog.Info("API server listening", "addr", apiAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}
