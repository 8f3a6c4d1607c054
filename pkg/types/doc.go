// Package types defines the shared Go types passed between the panel client,
// the collector, the metric store and the HTTP API. These are the canonical
// in-memory representations of panel data, separate from the panel's JSON
// wire format (see internal/panel).
package types
