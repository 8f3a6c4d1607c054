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

	"github.com/pteroexporter/pteroexporter/exporter/internal/api"
	"github.com/pteroexporter/pteroexporter/exporter/internal/collector"
	"github.com/pteroexporter/pteroexporter/exporter/internal/config"
	"github.com/pteroexporter/pteroexporter/exporter/internal/panel"
	"github.com/pteroexporter/pteroexporter/exporter/internal/store"
)

// Version of the build. This is injected at build-time.
var buildString = "unknown"

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fl, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if fl.version {
		fmt.Println(buildString)
		return 0
	}

	cfg, err := config.Load(fl.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if fl.printConfig {
		if err := config.Dump(os.Stdout, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	var lvl slog.LevelVar
	lvl.Set(cfg.Log.SlogLevel())
	slog.SetDefault(initLogger(os.Stdout, cfg.Log.Format, &lvl))

	slog.Info("pterodactyl-exporter starting",
		"version", buildString,
		"panel", cfg.Panel.URL,
		"listen", cfg.Exporter.Listen,
		"include_egg", cfg.Exporter.IncludeEgg,
		"batch_size", cfg.Exporter.BatchSize,
	)

	st := store.New(store.Opts{
		IncludeEgg:     cfg.Exporter.IncludeEgg,
		StaleAfter:     cfg.Exporter.StaleAfter,
		RuntimeMetrics: cfg.Exporter.RuntimeMetrics,
	})

	client, err := panel.New(panelOpts(cfg), st.UpstreamRequests())
	if err != nil {
		slog.Error("failed to build panel client", "err", err)
		return 1
	}

	col := collector.New(client, st, collectorOpts(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go st.Run(ctx)

	if fl.configPath != "" {
		rl := &reloader{lvl: &lvl, col: col, last: cfg}
		go func() {
			if err := config.Watch(ctx, fl.configPath, func(updated *config.Config) {
				rl.apply(updated)
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Exporter.Listen,
		Handler:           api.New(col, st),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Exporter.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("HTTP server stopped", "addr", cfg.Exporter.Listen, "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	slog.Info("pterodactyl-exporter shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown", "err", err)
		return 1
	}
	return 0
}
