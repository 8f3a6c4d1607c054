package collector

import (
	"context"
	"fmt"

	"github.com/pteroexporter/pteroexporter/pkg/types"
)

// walk requests listing pages in order starting at 1 and hands each page to
// fn before requesting the next. It stops once the page index passes the
// total_pages reported by the last response, so a listing with zero or one
// pages costs exactly one request.
func (c *Collector) walk(ctx context.Context, opts Opts, fn func(context.Context, *types.ServerPage)) error {
	for page := 1; ; {
		p, err := c.panel.ListServers(ctx, page, opts.PageSize, opts.IncludeEgg)
		if err != nil {
			return fmt.Errorf("collector: list servers page %d: %w", page, err)
		}

		fn(ctx, p)

		// total_pages is re-read from every response, so a listing that
		// shrinks mid-walk still ends; an empty page inside the range does not.
		page++
		if page > p.TotalPages {
			return nil
		}
	}
}
