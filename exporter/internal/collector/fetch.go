package collector

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pteroexporter/pteroexporter/exporter/internal/compute"
	"github.com/pteroexporter/pteroexporter/exporter/internal/store"
	"github.com/pteroexporter/pteroexporter/pkg/types"
)

// fetchPage fetches resources for servers in consecutive batches of
// opts.BatchSize. Each batch runs concurrently and completes before the next
// starts. Outcomes are returned in input order.
func (c *Collector) fetchPage(ctx context.Context, lo *slog.Logger, opts Opts, servers []types.Server) []types.Outcome {
	out := make([]types.Outcome, len(servers))

	for start := 0; start < len(servers); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(servers))

		// fetchOne never returns an error; failures land in the Outcome so
		// one server cannot cancel its batch siblings.
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i] = c.fetchOne(ctx, lo, opts, servers[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	return out
}

// fetchOne fetches one server's resources and writes the derived values. A
// failure is logged and returned in the Outcome, never propagated.
func (c *Collector) fetchOne(ctx context.Context, lo *slog.Logger, opts Opts, s types.Server) types.Outcome {
	sample, err := c.panel.Resources(ctx, s.Identifier)
	if err != nil {
		lo.Warn("collector: resource fetch failed", "server", s.Identifier, "name", s.Name, "err", err)
		return types.Outcome{Server: s, Err: err}
	}

	egg := s.Egg
	if egg == "" {
		egg = opts.UnknownEgg
	}

	u := compute.Derive(s.Limits, sample)
	if !u.HasCPU || !u.HasMemory || !u.HasDisk {
		lo.Debug("collector: unlimited resource, percentage skipped",
			"server", s.Identifier, "cpu_limit", s.Limits.CPU,
			"memory_limit", s.Limits.Memory, "disk_limit", s.Limits.Disk)
	}

	c.store.Update(store.Labels{
		ServerID:   s.Identifier,
		ServerName: s.Name,
		Node:       s.Node,
		Egg:        egg,
	}, u)

	return types.Outcome{Server: s}
}
