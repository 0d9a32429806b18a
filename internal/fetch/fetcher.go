// Package fetch retrieves item bodies for a page of ids with bounded concurrency.
package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/hnfeed/internal/logging"
	"github.com/abelbrown/hnfeed/internal/otel"
	"github.com/abelbrown/hnfeed/internal/story"
)

// DefaultWidth is the maximum number of item requests in flight at once.
const DefaultWidth = 10

// ItemGetter fetches a single item. *hn.Client satisfies it.
type ItemGetter interface {
	GetItem(ctx context.Context, id int) (story.Item, error)
}

// Fetcher fans item requests out in sequential chunks of Width ids.
// Chunk N+1 starts only after every request of chunk N has settled, so
// at most Width requests are ever in flight.
type Fetcher struct {
	getter ItemGetter
	width  int
	events otel.Emitter
}

// NewFetcher creates a Fetcher. A width below 1 uses DefaultWidth and a nil
// emitter disables the event trail.
func NewFetcher(getter ItemGetter, width int, events otel.Emitter) *Fetcher {
	if width < 1 {
		width = DefaultWidth
	}
	if events == nil {
		events = otel.Discard
	}
	return &Fetcher{
		getter: getter,
		width:  width,
		events: events,
	}
}

// Width returns the configured chunk width.
func (f *Fetcher) Width() int {
	return f.width
}

// FetchItems returns the items that were fetched successfully, in completion
// order. Individual failures are logged and omitted; they never fail the
// batch, so a batch where every id fails yields an empty slice. Empty input
// makes no requests. Once ctx is done the remaining chunks are skipped.
func (f *Fetcher) FetchItems(ctx context.Context, ids []int) []story.Item {
	if len(ids) == 0 {
		return nil
	}

	var (
		mu    sync.Mutex
		items = make([]story.Item, 0, len(ids))
	)

	for start := 0; start < len(ids); start += f.width {
		if ctx.Err() != nil {
			break
		}
		chunk := ids[start:min(start+f.width, len(ids))]

		var g errgroup.Group
		g.SetLimit(f.width)
		for _, id := range chunk {
			g.Go(func() error {
				item, err := f.fetchOne(ctx, id)
				if err != nil {
					return nil // never fail the group - errors reported per-item
				}
				mu.Lock()
				items = append(items, item)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	return items
}

func (f *Fetcher) fetchOne(ctx context.Context, id int) (story.Item, error) {
	if ctx.Err() != nil {
		return story.Item{}, ctx.Err()
	}

	start := time.Now()
	item, err := f.getter.GetItem(ctx, id)
	if err != nil {
		logging.Warn("item fetch failed", "id", id, "err", err)
		f.events.Emit(otel.Event{
			Level:  otel.LevelWarn,
			Kind:   otel.KindItemError,
			Comp:   "fetch",
			ItemID: id,
			Dur:    time.Since(start),
			Err:    err.Error(),
		})
		return story.Item{}, err
	}
	return item, nil
}
