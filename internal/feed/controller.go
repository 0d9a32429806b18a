// Package feed owns the story collection for the active feed type.
//
// The Controller is the single writer of feed state. Every mutation happens
// under its mutex; network calls run outside the lock and their results are
// merged only if the generation captured at start is still current. A feed
// switch or a fresh initial load bumps the generation, so a page that was in
// flight across a reset is dropped instead of leaking into the new feed.
//
// Operations block until their network work is done. Callers that must not
// block (a UI event loop) run them in a goroutine and watch Subscribe.
package feed

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/abelbrown/hnfeed/internal/logging"
	"github.com/abelbrown/hnfeed/internal/otel"
	"github.com/abelbrown/hnfeed/internal/page"
	"github.com/abelbrown/hnfeed/internal/story"
)

// DefaultMaxItems caps the number of stories kept in memory.
const DefaultMaxItems = 500

// IDLister returns the ordered id universe of a feed. *hn.Client satisfies it.
type IDLister interface {
	ListIDs(ctx context.Context, feed story.FeedType) ([]int, error)
}

// ItemFetcher fetches item bodies, omitting failures. *fetch.Fetcher satisfies it.
type ItemFetcher interface {
	FetchItems(ctx context.Context, ids []int) []story.Item
}

// Config tunes a Controller. Zero values use the defaults.
type Config struct {
	FeedType story.FeedType
	PageSize int
	MaxItems int
	Events   otel.Emitter
}

func (c Config) withDefaults() Config {
	if c.PageSize < 1 {
		c.PageSize = page.DefaultSize
	}
	if c.MaxItems < 1 {
		c.MaxItems = DefaultMaxItems
	}
	if c.Events == nil {
		c.Events = otel.Discard
	}
	return c
}

// entry is a story plus the order in which it was appended.
type entry struct {
	item story.Item
	seq  uint64
}

// Controller implements the feed state machine.
type Controller struct {
	lister  IDLister
	fetcher ItemFetcher
	cfg     Config
	events  otel.Emitter

	mu             sync.Mutex
	feed           story.FeedType
	generation     uint64
	universe       []int
	loaded         bool // universe fetched for the current generation
	offset         int
	entries        []entry
	seq            uint64
	initialLoading bool
	pageLoading    bool
	reachedEnd     bool
	err            error

	subMu  sync.Mutex
	subs   []chan State
	closed bool
}

// New creates a Controller for cfg.FeedType. Nothing is fetched until
// LoadInitial.
func New(lister IDLister, fetcher ItemFetcher, cfg Config) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		lister:  lister,
		fetcher: fetcher,
		cfg:     cfg,
		events:  cfg.Events,
		feed:    cfg.FeedType,
	}
}

// LoadInitial fetches the id universe of the active feed and its first page.
// It is a no-op while another initial load is running. Stories already on
// screen are replaced only once the new universe has arrived; if the id list
// cannot be fetched they are kept and Err is set.
func (c *Controller) LoadInitial(ctx context.Context) {
	c.mu.Lock()
	if c.initialLoading {
		c.mu.Unlock()
		return
	}
	c.generation++
	c.initialLoading = true
	c.pageLoading = false
	c.err = nil
	gen, feed := c.generation, c.feed
	c.mu.Unlock()
	c.publish()

	c.loadInitial(ctx, gen, feed)
}

// SwitchFeedType activates feed and loads it from scratch. Switching to the
// feed that is already active does nothing.
func (c *Controller) SwitchFeedType(ctx context.Context, feed story.FeedType) {
	c.mu.Lock()
	if feed == c.feed {
		c.mu.Unlock()
		return
	}
	from := c.feed
	c.feed = feed
	c.generation++
	c.universe = nil
	c.loaded = false
	c.offset = 0
	c.entries = nil
	c.reachedEnd = false
	c.err = nil
	c.pageLoading = false
	c.initialLoading = true
	gen := c.generation
	c.mu.Unlock()

	logging.Info("feed switched", "from", from, "to", feed)
	c.events.Emit(otel.Event{
		Level:      otel.LevelInfo,
		Kind:       otel.KindFeedSwitch,
		Comp:       "feed",
		Feed:       feed.String(),
		Generation: gen,
		Msg:        "from " + from.String(),
	})
	c.publish()

	c.loadInitial(ctx, gen, feed)
}

func (c *Controller) loadInitial(ctx context.Context, gen uint64, feed story.FeedType) {
	start := time.Now()
	c.events.Emit(otel.Event{
		Level:      otel.LevelInfo,
		Kind:       otel.KindIDsStart,
		Comp:       "feed",
		Feed:       feed.String(),
		Generation: gen,
	})

	ids, err := c.lister.ListIDs(ctx, feed)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.stale(gen, feed, 0)
		return
	}
	if err != nil {
		c.initialLoading = false
		c.err = err
		c.mu.Unlock()

		logging.Error("id list failed", "feed", feed, "err", err)
		c.events.Emit(otel.Event{
			Level:      otel.LevelError,
			Kind:       otel.KindIDsError,
			Comp:       "feed",
			Feed:       feed.String(),
			Generation: gen,
			Dur:        time.Since(start),
			Err:        err.Error(),
		})
		c.publish()
		return
	}

	c.universe = ids
	c.loaded = true
	c.offset = 0
	c.entries = nil
	c.reachedEnd = false
	p, ok := c.nextPageLocked(gen, feed)
	if !ok {
		c.initialLoading = false
	}
	c.mu.Unlock()

	logging.Debug("id list loaded", "feed", feed, "count", len(ids))
	c.events.Emit(otel.Event{
		Level:      otel.LevelInfo,
		Kind:       otel.KindIDsComplete,
		Comp:       "feed",
		Feed:       feed.String(),
		Generation: gen,
		Count:      len(ids),
		Dur:        time.Since(start),
	})
	c.publish()

	if ok {
		c.fetchPage(ctx, gen, feed, p, &c.initialLoading)
	}
}

// LoadNextPage appends the next page of stories. It does nothing while any
// load is running, once the end of the feed has been reached, or before an
// id universe has been loaded. A prior error is cleared once the new attempt
// has started.
func (c *Controller) LoadNextPage(ctx context.Context) {
	c.mu.Lock()
	if c.pageLoading || c.initialLoading || c.reachedEnd || !c.loaded {
		c.mu.Unlock()
		return
	}
	c.pageLoading = true
	gen, feed := c.generation, c.feed
	p, ok := c.nextPageLocked(gen, feed)
	if !ok {
		c.pageLoading = false
	} else {
		c.err = nil
	}
	c.mu.Unlock()
	c.publish()

	if ok {
		c.fetchPage(ctx, gen, feed, p, &c.pageLoading)
	}
}

// nextPageLocked computes the page after the cursor. When the universe is
// exhausted it marks the end and reports false.
func (c *Controller) nextPageLocked(gen uint64, feed story.FeedType) (page.Page, bool) {
	p := page.Next(c.universe, c.offset, c.cfg.PageSize)
	if len(p.IDs) == 0 {
		c.reachedEnd = true
		c.events.Emit(otel.Event{
			Level:      otel.LevelInfo,
			Kind:       otel.KindPageEnd,
			Comp:       "feed",
			Feed:       feed.String(),
			Generation: gen,
			Offset:     c.offset,
		})
		return p, false
	}
	return p, true
}

// fetchPage loads the items of p and merges them. flag is the loading flag
// owned by this load; it is only cleared if the generation is still current.
func (c *Controller) fetchPage(ctx context.Context, gen uint64, feed story.FeedType, p page.Page, flag *bool) {
	start := time.Now()
	from := p.Offset - len(p.IDs)
	c.events.Emit(otel.Event{
		Level:      otel.LevelDebug,
		Kind:       otel.KindPageStart,
		Comp:       "feed",
		Feed:       feed.String(),
		Generation: gen,
		Offset:     from,
		Count:      len(p.IDs),
	})

	items := c.fetcher.FetchItems(ctx, p.IDs)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.stale(gen, feed, len(items))
		return
	}
	*flag = false

	if err := ctx.Err(); err != nil {
		// The fetcher stops at the first chunk boundary after cancellation,
		// so part of the page was never requested. Keep what arrived and
		// leave the cursor so a retry asks for the whole page again.
		trimmed := c.mergeLocked(items)
		c.err = err
		c.mu.Unlock()

		logging.Warn("page cancelled", "feed", feed, "offset", from, "fetched", len(items), "of", len(p.IDs), "err", err)
		c.events.Emit(otel.Event{
			Level:      otel.LevelWarn,
			Kind:       otel.KindPageCancel,
			Comp:       "feed",
			Feed:       feed.String(),
			Generation: gen,
			Offset:     from,
			Count:      len(items),
			Dur:        time.Since(start),
			Err:        err.Error(),
		})
		if trimmed > 0 {
			c.emitTrim(gen, feed, trimmed)
		}
		c.publish()
		return
	}

	if len(items) == 0 {
		err := ErrPageUnavailable
		c.err = err
		c.mu.Unlock()

		logging.Warn("page unavailable", "feed", feed, "offset", from, "ids", len(p.IDs), "err", err)
		c.events.Emit(otel.Event{
			Level:      otel.LevelWarn,
			Kind:       otel.KindPageEmpty,
			Comp:       "feed",
			Feed:       feed.String(),
			Generation: gen,
			Offset:     from,
			Dur:        time.Since(start),
			Err:        err.Error(),
		})
		c.publish()
		return
	}

	trimmed := c.mergeLocked(items)
	c.offset = p.Offset
	if p.Last {
		c.reachedEnd = true
	}
	c.err = nil
	total := len(c.entries)
	c.mu.Unlock()

	logging.Debug("page loaded", "feed", feed, "offset", p.Offset, "fetched", len(items), "of", len(p.IDs))
	c.events.Emit(otel.Event{
		Level:      otel.LevelInfo,
		Kind:       otel.KindPageComplete,
		Comp:       "feed",
		Feed:       feed.String(),
		Generation: gen,
		Offset:     p.Offset,
		Count:      len(items),
		Dur:        time.Since(start),
		Extra:      map[string]any{"requested": len(p.IDs), "total": total},
	})
	if trimmed > 0 {
		c.emitTrim(gen, feed, trimmed)
	}
	c.publish()
}

func (c *Controller) stale(gen uint64, feed story.FeedType, count int) {
	logging.Debug("dropping stale result", "feed", feed, "gen", gen)
	c.events.Emit(otel.Event{
		Level:      otel.LevelDebug,
		Kind:       otel.KindPageStale,
		Comp:       "feed",
		Feed:       feed.String(),
		Generation: gen,
		Count:      count,
	})
}

// mergeLocked appends items that are not already present, keeps the
// collection sorted newest first and enforces the memory ceiling. It returns
// the number of trimmed entries.
func (c *Controller) mergeLocked(items []story.Item) int {
	incoming := slices.Clone(items)
	slices.SortFunc(incoming, newestFirst)

	seen := make(map[int]struct{}, len(c.entries)+len(incoming))
	for _, e := range c.entries {
		seen[e.item.ID] = struct{}{}
	}
	for _, it := range incoming {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		c.seq++
		c.entries = append(c.entries, entry{item: it, seq: c.seq})
	}

	slices.SortStableFunc(c.entries, func(a, b entry) int {
		return newestFirst(a.item, b.item)
	})
	return c.trimLocked()
}

// newestFirst orders by publication time descending, then id descending.
func newestFirst(a, b story.Item) int {
	if c := cmp.Compare(b.Time, a.Time); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// trimLocked drops the oldest-appended entries beyond MaxItems. The order of
// the survivors is unchanged.
func (c *Controller) trimLocked() int {
	excess := len(c.entries) - c.cfg.MaxItems
	if excess <= 0 {
		return 0
	}

	seqs := make([]uint64, len(c.entries))
	for i, e := range c.entries {
		seqs[i] = e.seq
	}
	slices.Sort(seqs)
	cutoff := seqs[excess] // seqs are unique; keep seq >= cutoff

	c.entries = slices.DeleteFunc(c.entries, func(e entry) bool {
		return e.seq < cutoff
	})
	return excess
}

// Retry reloads from scratch when nothing is shown yet and otherwise retries
// the next page.
func (c *Controller) Retry(ctx context.Context) {
	c.mu.Lock()
	empty := len(c.entries) == 0
	c.mu.Unlock()

	if empty {
		c.LoadInitial(ctx)
		return
	}
	c.LoadNextPage(ctx)
}

// ClearError dismisses the current error.
func (c *Controller) ClearError() {
	c.mu.Lock()
	if c.err == nil {
		c.mu.Unlock()
		return
	}
	c.err = nil
	c.mu.Unlock()
	c.publish()
}

// Trim enforces the memory ceiling. It is safe to call at any time,
// including while a load is in flight.
func (c *Controller) Trim() {
	c.mu.Lock()
	n := c.trimLocked()
	gen, feed := c.generation, c.feed
	c.mu.Unlock()

	if n == 0 {
		return
	}
	c.emitTrim(gen, feed, n)
	c.publish()
}

func (c *Controller) emitTrim(gen uint64, feed story.FeedType, n int) {
	logging.Debug("trimmed stories", "feed", feed, "removed", n)
	c.events.Emit(otel.Event{
		Level:      otel.LevelInfo,
		Kind:       otel.KindFeedTrim,
		Comp:       "feed",
		Feed:       feed.String(),
		Generation: gen,
		Count:      n,
	})
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	items := make([]story.Item, len(c.entries))
	for i, e := range c.entries {
		items[i] = e.item
	}
	return State{
		Items:          items,
		FeedType:       c.feed,
		Offset:         c.offset,
		Total:          len(c.universe),
		InitialLoading: c.initialLoading,
		PageLoading:    c.pageLoading,
		ReachedEnd:     c.reachedEnd,
		Err:            c.err,
	}
}
