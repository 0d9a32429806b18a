package fetch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/abelbrown/hnfeed/internal/otel"
	"github.com/abelbrown/hnfeed/internal/story"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockGetter implements ItemGetter for testing.
type mockGetter struct {
	mu       sync.Mutex
	requests []int
	fail     map[int]bool
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (m *mockGetter) GetItem(ctx context.Context, id int) (story.Item, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return story.Item{}, ctx.Err()
		case <-time.After(m.delay):
		}
	}

	m.mu.Lock()
	m.requests = append(m.requests, id)
	m.mu.Unlock()

	if m.fail[id] {
		return story.Item{}, fmt.Errorf("item %d: %w", id, errors.New("connection reset"))
	}
	return story.Item{ID: id, Title: fmt.Sprintf("Story %d", id), Time: int64(1700000000 + id)}, nil
}

func (m *mockGetter) requested() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.requests))
	copy(out, m.requests)
	return out
}

// recorder captures emitted events.
type recorder struct {
	mu     sync.Mutex
	events []otel.Event
}

func (r *recorder) Emit(e otel.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds(kind otel.EventKind) []otel.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []otel.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func seq(from, n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = from + i
	}
	return ids
}

func sortedIDs(items []story.Item) []int {
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	sort.Ints(ids)
	return ids
}

func TestFetchItemsEmptyMakesNoCalls(t *testing.T) {
	mock := &mockGetter{}
	f := NewFetcher(mock, 10, nil)

	if got := f.FetchItems(context.Background(), nil); len(got) != 0 {
		t.Errorf("expected no items, got %d", len(got))
	}
	if got := f.FetchItems(context.Background(), []int{}); len(got) != 0 {
		t.Errorf("expected no items, got %d", len(got))
	}
	if mock.calls.Load() != 0 {
		t.Errorf("expected 0 calls, got %d", mock.calls.Load())
	}
}

func TestFetchItemsReturnsAll(t *testing.T) {
	mock := &mockGetter{}
	f := NewFetcher(mock, 10, nil)

	ids := seq(100, 25)
	items := f.FetchItems(context.Background(), ids)

	if diff := cmp.Diff(ids, sortedIDs(items)); diff != "" {
		t.Errorf("fetched ids mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchItemsPartialFailure(t *testing.T) {
	mock := &mockGetter{fail: map[int]bool{3: true, 9: true, 17: true}}
	rec := &recorder{}
	f := NewFetcher(mock, 10, rec)

	items := f.FetchItems(context.Background(), seq(1, 20))

	if len(items) != 17 {
		t.Fatalf("expected 17 items, got %d", len(items))
	}
	for _, it := range items {
		if mock.fail[it.ID] {
			t.Errorf("failed item %d should be omitted", it.ID)
		}
	}

	errs := rec.kinds(otel.KindItemError)
	if len(errs) != 3 {
		t.Fatalf("expected 3 item.error events, got %d", len(errs))
	}
	got := []int{errs[0].ItemID, errs[1].ItemID, errs[2].ItemID}
	sort.Ints(got)
	if diff := cmp.Diff([]int{3, 9, 17}, got); diff != "" {
		t.Errorf("item.error ids mismatch (-want +got):\n%s", diff)
	}
	for _, e := range errs {
		if e.Comp != "fetch" || e.Err == "" {
			t.Errorf("unexpected event %+v", e)
		}
	}
}

func TestFetchItemsAllFailIsEmptyNotError(t *testing.T) {
	ids := seq(1, 12)
	fail := make(map[int]bool)
	for _, id := range ids {
		fail[id] = true
	}
	mock := &mockGetter{fail: fail}
	f := NewFetcher(mock, 10, nil)

	items := f.FetchItems(context.Background(), ids)
	if len(items) != 0 {
		t.Errorf("expected empty result, got %d items", len(items))
	}
	if mock.calls.Load() != int32(len(ids)) {
		t.Errorf("expected every id requested once, got %d calls", mock.calls.Load())
	}
}

func TestFetchItemsBoundsConcurrency(t *testing.T) {
	mock := &mockGetter{delay: 10 * time.Millisecond}
	f := NewFetcher(mock, 4, nil)

	items := f.FetchItems(context.Background(), seq(1, 22))

	if len(items) != 22 {
		t.Errorf("expected 22 items, got %d", len(items))
	}
	if peak := mock.maxInFlight.Load(); peak > 4 {
		t.Errorf("max in-flight = %d, want <= 4", peak)
	}
}

func TestFetchItemsChunksAreSequential(t *testing.T) {
	mock := &mockGetter{delay: 5 * time.Millisecond}
	f := NewFetcher(mock, 5, nil)

	ids := seq(1, 15)
	f.FetchItems(context.Background(), ids)

	// Every id of chunk N must be requested before any id of chunk N+1.
	order := mock.requested()
	if len(order) != len(ids) {
		t.Fatalf("expected %d requests, got %d", len(ids), len(order))
	}
	for pos, id := range order {
		chunk := (id - 1) / 5
		if pos/5 != chunk {
			t.Errorf("id %d (chunk %d) completed at position %d", id, chunk, pos)
		}
	}
}

func TestFetchItemsStopsAfterCancel(t *testing.T) {
	mock := &mockGetter{}
	f := NewFetcher(mock, 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if items := f.FetchItems(ctx, seq(1, 30)); len(items) != 0 {
		t.Errorf("expected no items after cancel, got %d", len(items))
	}
	if mock.calls.Load() != 0 {
		t.Errorf("expected no requests after cancel, got %d", mock.calls.Load())
	}
}

func TestNewFetcherDefaultWidth(t *testing.T) {
	f := NewFetcher(&mockGetter{}, 0, nil)
	if f.Width() != DefaultWidth {
		t.Errorf("Width() = %d, want %d", f.Width(), DefaultWidth)
	}
}
