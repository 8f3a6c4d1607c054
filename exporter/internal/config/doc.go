// Package config loads and watches the exporter configuration.
//
// Top-level types:
//   - Config{Panel, Exporter, Log}: full config tree
//   - PanelConfig: url, api_key, client_api_key, timeout, idle_timeout,
//     max_idle_conns, insecure_skip_verify
//   - ExporterConfig: listen, page_size, batch_size, cycle_timeout,
//     include_egg, unknown_egg, stale_after, runtime_metrics
//   - LogConfig: level (debug|info|warn|error), format (json|text)
//
// Load(path) layers, with koanf: defaults, then the optional file at path
// (YAML, or TOML for a .toml extension), then a .env file in the working
// directory when one exists, then PTERODACTYL_* environment
// variables ("__" separates nesting levels). PTERODACTYL_API_URL,
// PTERODACTYL_API_KEY and PTERODACTYL_CLIENT_API_KEY map onto the panel
// section. The result is validated before it is returned.
//
// Watch(ctx, path, onChange) uses fsnotify to reload the file on change and
// calls onChange with the new Config. A reload that fails to parse or
// validate is logged and the previous config stays active.
//
// Dump writes the effective config as YAML with secrets redacted.
package config
