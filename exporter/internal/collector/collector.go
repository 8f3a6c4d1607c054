package collector

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pteroexporter/pteroexporter/exporter/internal/store"
	"github.com/pteroexporter/pteroexporter/pkg/types"
)

// Defaults used when Opts fields are zero.
const (
	DefaultPageSize   = 150
	DefaultBatchSize  = 50
	DefaultUnknownEgg = "unknown egg"
)

// Panel is the subset of the panel API a cycle needs.
type Panel interface {
	ListServers(ctx context.Context, page, perPage int, includeEgg bool) (*types.ServerPage, error)
	Resources(ctx context.Context, identifier string) (types.ResourceSample, error)
}

// Opts tunes a refresh cycle.
type Opts struct {
	PageSize  int
	BatchSize int
	// IncludeEgg requests the egg relationship and fills the egg label.
	// Must match the store's label set, so SetOptions never changes it.
	IncludeEgg bool
	// UnknownEgg is the label value used when a server has no egg.
	UnknownEgg string
	// CycleTimeout bounds a whole cycle. 0 means no deadline.
	CycleTimeout time.Duration
}

func (o Opts) withDefaults() Opts {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.UnknownEgg == "" {
		o.UnknownEgg = DefaultUnknownEgg
	}
	return o
}

// Collector refreshes the Metric Store from the panel.
//
// All exported methods are safe for concurrent use.
type Collector struct {
	panel Panel
	store *store.Store

	mu   sync.RWMutex
	opts Opts

	group singleflight.Group
	last  atomic.Pointer[types.CycleSummary]

	now   func() time.Time // injectable for tests
	newID func() string
}

// New returns a Collector writing into st.
func New(p Panel, st *store.Store, opts Opts) *Collector {
	return &Collector{
		panel: p,
		store: st,
		opts:  opts.withDefaults(),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// SetOptions replaces the cycle tunables for subsequent cycles. IncludeEgg is
// kept at its construction-time value.
func (c *Collector) SetOptions(opts Opts) {
	c.mu.Lock()
	defer c.mu.Unlock()
	opts.IncludeEgg = c.opts.IncludeEgg
	c.opts = opts.withDefaults()
}

func (c *Collector) options() Opts {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts
}

// Last returns the summary of the most recent finished cycle, or nil.
func (c *Collector) Last() *types.CycleSummary {
	return c.last.Load()
}

// Refresh runs a refresh cycle, or joins the one already in flight, and
// returns its summary. The error is non-nil when the cycle was aborted by a
// listing failure or when ctx ends before the cycle finishes; in the latter
// case the cycle keeps running for other callers.
func (c *Collector) Refresh(ctx context.Context) (*types.CycleSummary, error) {
	ch := c.group.DoChan("refresh", func() (any, error) {
		sum := c.run(context.WithoutCancel(ctx))
		return sum, sum.Err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		sum, _ := res.Val.(*types.CycleSummary)
		return sum, res.Err
	}
}

// run executes one full enumerate-then-fetch cycle.
func (c *Collector) run(ctx context.Context) *types.CycleSummary {
	opts := c.options()
	sum := &types.CycleSummary{ID: c.newID(), Started: c.now()}
	lo := slog.With("cycle", sum.ID)

	if opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.CycleTimeout)
		defer cancel()
	}

	lo.Debug("collector: cycle started", "page_size", opts.PageSize, "batch_size", opts.BatchSize)

	sum.Err = c.walk(ctx, opts, func(ctx context.Context, page *types.ServerPage) {
		sum.Pages++
		for _, o := range c.fetchPage(ctx, lo, opts, page.Servers) {
			sum.Record(o)
		}
	})
	sum.Duration = c.now().Sub(sum.Started)

	c.store.RecordCycle(sum)
	c.last.Store(sum)

	if sum.Err != nil {
		lo.Error("collector: cycle aborted",
			"pages", sum.Pages, "servers", sum.Servers, "duration", sum.Duration, "err", sum.Err)
		return sum
	}
	lo.Info("collector: cycle finished",
		"pages", sum.Pages,
		"servers", sum.Servers,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"duration", sum.Duration,
	)
	return sum
}
