package config

import (
	"io"

	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

// Dump writes cfg as YAML, in the same key layout Load reads, with API keys
// redacted and durations in Go duration syntax.
func Dump(w io.Writer, cfg *Config) error {
	doc := map[string]any{
		"panel": map[string]any{
			"url":                  cfg.Panel.URL,
			"api_key":              redact(cfg.Panel.APIKey),
			"client_api_key":       redact(cfg.Panel.ClientAPIKey),
			"timeout":              cfg.Panel.Timeout.String(),
			"idle_timeout":         cfg.Panel.IdleTimeout.String(),
			"max_idle_conns":       cfg.Panel.MaxIdleConns,
			"insecure_skip_verify": cfg.Panel.InsecureSkipVerify,
		},
		"exporter": map[string]any{
			"listen":          cfg.Exporter.Listen,
			"page_size":       cfg.Exporter.PageSize,
			"batch_size":      cfg.Exporter.BatchSize,
			"cycle_timeout":   cfg.Exporter.CycleTimeout.String(),
			"include_egg":     cfg.Exporter.IncludeEgg,
			"unknown_egg":     cfg.Exporter.UnknownEgg,
			"stale_after":     cfg.Exporter.StaleAfter.String(),
			"runtime_metrics": cfg.Exporter.RuntimeMetrics,
		},
		"log": map[string]any{
			"level":  cfg.Log.Level,
			"format": cfg.Log.Format,
		},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}
