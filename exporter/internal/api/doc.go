// Package api implements the exporter's HTTP surface.
//
// New(refresher, gatherer) returns an http.Handler that serves:
//
//	GET /metrics        runs (or joins) a refresh cycle, then writes the
//	                    Metric Store in the negotiated exposition format;
//	                    500 when the cycle was aborted by a listing failure
//	GET /healthz        liveness, never touches the panel
//	GET /api/v1/status  JSON summary of the last finished cycle
//
// All endpoints return 405 for non-GET methods. No external HTTP framework
// is used.
package api
