package main

import (
	"fmt"
	"io"
	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/pteroexporter/pteroexporter/exporter/internal/collector"
	"github.com/pteroexporter/pteroexporter/exporter/internal/config"
	"github.com/pteroexporter/pteroexporter/exporter/internal/panel"
)

// flags holds the parsed command line.
type flags struct {
	configPath  string
	printConfig bool
	version     bool
}

// parseFlags parses args (without the program name).
func parseFlags(args []string) (flags, error) {
	var (
		out flags
		f   = flag.NewFlagSet("pterodactyl-exporter", flag.ContinueOnError)
	)

	f.StringVar(&out.configPath, "config", "", "Path to a YAML or TOML config file. Environment variables prefixed "+config.EnvPrefix+" override it.")
	f.BoolVar(&out.printConfig, "print-config", false, "Print the effective config with secrets redacted and exit.")
	f.BoolVar(&out.version, "version", false, "Print the version and exit.")

	if err := f.Parse(args); err != nil {
		return flags{}, err
	}
	if f.NArg() > 0 {
		return flags{}, fmt.Errorf("unexpected arguments: %v", f.Args())
	}
	return out, nil
}

// initLogger returns a logger writing to w in the configured format. The
// level is read through lvl so a config reload can change it in place.
func initLogger(w io.Writer, format string, lvl *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// panelOpts maps the panel section onto client options.
func panelOpts(cfg *config.Config) panel.Opts {
	return panel.Opts{
		URL:                cfg.Panel.URL,
		APIKey:             cfg.Panel.APIKey,
		ClientAPIKey:       cfg.Panel.ClientAPIKey,
		Timeout:            cfg.Panel.Timeout,
		IdleConnTimeout:    cfg.Panel.IdleTimeout,
		MaxIdleConns:       cfg.Panel.MaxIdleConns,
		InsecureSkipVerify: cfg.Panel.InsecureSkipVerify,
		UserAgent:          "pterodactyl-exporter/" + buildString,
	}
}

// collectorOpts maps the exporter section onto refresh cycle options.
func collectorOpts(cfg *config.Config) collector.Opts {
	return collector.Opts{
		PageSize:     cfg.Exporter.PageSize,
		BatchSize:    cfg.Exporter.BatchSize,
		IncludeEgg:   cfg.Exporter.IncludeEgg,
		UnknownEgg:   cfg.Exporter.UnknownEgg,
		CycleTimeout: cfg.Exporter.CycleTimeout,
	}
}

// optionSetter receives hot-reloaded cycle options.
type optionSetter interface {
	SetOptions(collector.Opts)
}

// reloader applies config reloads to the running process.
type reloader struct {
	lvl  *slog.LevelVar
	col  optionSetter
	last *config.Config
}

// apply sets the live tunables from updated and returns the restart-only keys
// that changed since the previous reload. A pending restart-only change is
// reported once, not on every later reload.
func (r *reloader) apply(updated *config.Config) []string {
	r.lvl.Set(updated.Log.SlogLevel())
	r.col.SetOptions(collectorOpts(updated))

	keys := restartOnly(r.last, updated)
	r.last = updated
	if len(keys) > 0 {
		slog.Warn("config changes need a restart to apply", "keys", keys)
	}
	slog.Info("config hot-reloaded",
		"log_level", updated.Log.Level,
		"batch_size", updated.Exporter.BatchSize,
		"page_size", updated.Exporter.PageSize,
	)
	return keys
}

// restartOnly lists settings that changed between old and updated but only
// take effect after a restart.
func restartOnly(old, updated *config.Config) []string {
	var out []string
	if old.Panel != updated.Panel {
		out = append(out, "panel")
	}
	if old.Exporter.Listen != updated.Exporter.Listen {
		out = append(out, "exporter.listen")
	}
	if old.Exporter.IncludeEgg != updated.Exporter.IncludeEgg {
		out = append(out, "exporter.include_egg")
	}
	if old.Exporter.StaleAfter != updated.Exporter.StaleAfter {
		out = append(out, "exporter.stale_after")
	}
	if old.Exporter.RuntimeMetrics != updated.Exporter.RuntimeMetrics {
		out = append(out, "exporter.runtime_metrics")
	}
	if old.Log.Format != updated.Log.Format {
		out = append(out, "log.format")
	}
	return out
}
