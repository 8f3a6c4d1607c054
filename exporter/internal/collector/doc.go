// Package collector runs refresh cycles: it walks the panel's paginated server
// listing and, page by page, fetches every server's resource usage into the
// Metric Store.
//
// enumerate.go walks pages strictly in order; page N+1 is only requested after
// page N's servers were fetched. fetch.go splits a page into consecutive
// batches and fetches one batch concurrently, waiting for the whole batch
// before starting the next, so at most BatchSize detail requests are in
// flight. A failed detail fetch is logged and recorded as a failed Outcome;
// it never aborts the batch or the cycle. A failed listing request aborts the
// cycle.
//
// Collector.Refresh is single-flight: overlapping callers wait for and share
// the cycle already running. The cycle itself is detached from the callers'
// cancellation and bounded by Opts.CycleTimeout.
package collector
