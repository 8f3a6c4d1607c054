// Package compute derives the exported per-server values from a panel
// resource sample and the server's configured limits.
//
// usage.go provides the pure Derive(Limits, ResourceSample) function.
// CPU, RAM and disk are expressed as a percentage of the server's limit;
// RAM and disk are also kept as raw bytes, network counters are copied
// verbatim.
//
// A limit of zero (the panel's "unlimited") or below leaves the matching
// percentage unset. Callers check the Has* flags before writing a series.
package compute
