package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/hnfeed/internal/feed"
	"github.com/abelbrown/hnfeed/internal/story"
)

// mockController records the intents forwarded by the App.
type mockController struct {
	mu       sync.Mutex
	calls    []string
	switched story.FeedType
}

func (m *mockController) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockController) LoadInitial(ctx context.Context)  { m.record("LoadInitial") }
func (m *mockController) LoadNextPage(ctx context.Context) { m.record("LoadNextPage") }
func (m *mockController) Retry(ctx context.Context)        { m.record("Retry") }
func (m *mockController) ClearError()                      { m.record("ClearError") }
func (m *mockController) Trim()                            { m.record("Trim") }

func (m *mockController) SwitchFeedType(ctx context.Context, t story.FeedType) {
	m.mu.Lock()
	m.switched = t
	m.mu.Unlock()
	m.record("SwitchFeedType")
}

func (m *mockController) called() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testItems(n int) []story.Item {
	items := make([]story.Item, n)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := range items {
		score := 10 * (i + 1)
		items[i] = story.Item{
			ID:     i + 1,
			Title:  fmt.Sprintf("Story %d", i+1),
			URL:    fmt.Sprintf("https://blog.example.com/post/%d", i+1),
			Author: "pg",
			Time:   base.Add(-time.Duration(i) * time.Hour).Unix(),
			Score:  &score,
		}
	}
	return items
}

func newTestApp(state feed.State) (App, *mockController) {
	mock := &mockController{}
	app := NewApp(context.Background(), mock, nil, state)
	app.now = func() time.Time { return time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC) }
	model, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return model.(App), mock
}

func press(t *testing.T, app App, k string) (App, tea.Cmd) {
	t.Helper()
	model, cmd := app.Update(keyPress(k))
	return model.(App), cmd
}

func TestAppInitLoadsFeed(t *testing.T) {
	mock := &mockController{}
	app := NewApp(context.Background(), mock, make(chan feed.State), feed.State{})

	cmd := app.Init()
	if cmd == nil {
		t.Fatal("Init should return a command")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("expected tea.BatchMsg, got %T", cmd())
	}
	if len(batch) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(batch))
	}

	// The second command runs the initial load.
	batch[1]()
	if got := mock.called(); len(got) != 1 || got[0] != "LoadInitial" {
		t.Errorf("expected LoadInitial, got %v", got)
	}
}

func TestWaitForState(t *testing.T) {
	ch := make(chan feed.State, 1)
	ch <- feed.State{Total: 42}

	msg := waitForState(ch)()
	sc, ok := msg.(StateChanged)
	if !ok || sc.State.Total != 42 {
		t.Fatalf("expected StateChanged with Total 42, got %#v", msg)
	}

	close(ch)
	if _, ok := waitForState(ch)().(subscriptionClosed); !ok {
		t.Error("expected subscriptionClosed after close")
	}

	if waitForState(nil) != nil {
		t.Error("expected nil command for nil channel")
	}
}

func TestStateChangedUpdatesModel(t *testing.T) {
	ch := make(chan feed.State, 1)
	app := NewApp(context.Background(), &mockController{}, ch, feed.State{})

	model, cmd := app.Update(StateChanged{State: feed.State{Items: testItems(5), Offset: 20}})
	app = model.(App)

	if len(app.State().Items) != 5 || app.State().Offset != 20 {
		t.Errorf("state not applied: %+v", app.State())
	}
	if cmd == nil {
		t.Error("expected command to wait for the next state")
	}
}

func TestStateChangedClampsCursor(t *testing.T) {
	app, _ := newTestApp(feed.State{Items: testItems(10)})
	app.cursor = 9

	model, _ := app.Update(StateChanged{State: feed.State{Items: testItems(4)}})
	if got := model.(App).Cursor(); got != 3 {
		t.Errorf("cursor = %d, want 3", got)
	}

	model, _ = model.(App).Update(StateChanged{State: feed.State{}})
	if got := model.(App).Cursor(); got != 0 {
		t.Errorf("cursor = %d, want 0 on empty list", got)
	}
}

func TestFeedChangeResetsCursor(t *testing.T) {
	app, _ := newTestApp(feed.State{Items: testItems(10), FeedType: story.Top})
	app.cursor = 5

	model, _ := app.Update(StateChanged{State: feed.State{Items: testItems(10), FeedType: story.New}})
	if got := model.(App).Cursor(); got != 0 {
		t.Errorf("cursor = %d, want 0 after feed change", got)
	}
}

func TestAppNavigation(t *testing.T) {
	app, _ := newTestApp(feed.State{Items: testItems(3), ReachedEnd: true})

	app, _ = press(t, app, "j")
	if app.Cursor() != 1 {
		t.Errorf("after j: cursor = %d, want 1", app.Cursor())
	}
	app, _ = press(t, app, "down")
	app, _ = press(t, app, "j")
	if app.Cursor() != 2 {
		t.Errorf("cursor should stop at last item, got %d", app.Cursor())
	}
	app, _ = press(t, app, "k")
	if app.Cursor() != 1 {
		t.Errorf("after k: cursor = %d, want 1", app.Cursor())
	}
	app, _ = press(t, app, "G")
	if app.Cursor() != 2 {
		t.Errorf("after G: cursor = %d, want 2", app.Cursor())
	}
	app, _ = press(t, app, "g")
	if app.Cursor() != 0 {
		t.Errorf("after g: cursor = %d, want 0", app.Cursor())
	}
	app, _ = press(t, app, "up")
	if app.Cursor() != 0 {
		t.Errorf("cursor should stay at 0, got %d", app.Cursor())
	}
}

func TestLoadMoreNearEnd(t *testing.T) {
	app, mock := newTestApp(feed.State{Items: testItems(10)})
	app.cursor = 5

	app, cmd := press(t, app, "j") // cursor 6
	if cmd != nil {
		t.Fatal("did not expect a page load at cursor 6 of 10")
	}

	app, cmd = press(t, app, "j") // cursor 7
	if cmd == nil {
		t.Fatal("expected a page load within the last three stories")
	}
	cmd()
	if got := mock.called(); len(got) != 1 || got[0] != "LoadNextPage" {
		t.Errorf("expected LoadNextPage, got %v", got)
	}
}

func TestNoLoadMoreWhenBusyOrDone(t *testing.T) {
	tests := []struct {
		name  string
		state feed.State
	}{
		{"page loading", feed.State{Items: testItems(5), PageLoading: true}},
		{"initial loading", feed.State{Items: testItems(5), InitialLoading: true}},
		{"reached end", feed.State{Items: testItems(5), ReachedEnd: true}},
		{"inline error", feed.State{Items: testItems(5), Err: errors.New("boom")}},
		{"empty", feed.State{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, _ := newTestApp(tc.state)
			if _, cmd := press(t, app, "G"); cmd != nil {
				t.Error("expected no page load")
			}
		})
	}
}

func TestIntentKeys(t *testing.T) {
	tests := []struct {
		key  string
		want string
		sync bool
	}{
		{"r", "Retry", false},
		{"t", "SwitchFeedType", false},
		{"x", "ClearError", true},
		{"m", "Trim", true},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			app, mock := newTestApp(feed.State{Items: testItems(3), FeedType: story.Top})
			_, cmd := press(t, app, tc.key)

			if tc.sync {
				if cmd != nil {
					t.Errorf("%s should not return a command", tc.key)
				}
			} else {
				if cmd == nil {
					t.Fatalf("%s should return a command", tc.key)
				}
				cmd()
			}

			if got := mock.called(); len(got) != 1 || got[0] != tc.want {
				t.Errorf("expected %s, got %v", tc.want, got)
			}
		})
	}
}

func TestToggleSwitchesToOtherFeed(t *testing.T) {
	app, mock := newTestApp(feed.State{Items: testItems(3), FeedType: story.Top})
	app.cursor = 2

	app, cmd := press(t, app, "t")
	if app.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0 after toggle", app.Cursor())
	}
	cmd()
	if mock.switched != story.New {
		t.Errorf("switched to %v, want new", mock.switched)
	}
}

func TestQuit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		app, _ := newTestApp(feed.State{})
		_, cmd := press(t, app, k)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", k)
		}
	}
}

func TestHelpToggle(t *testing.T) {
	app, _ := newTestApp(feed.State{Items: testItems(3)})
	app, _ = press(t, app, "?")
	if !app.showHelp || !app.help.ShowAll {
		t.Error("expected full help after ?")
	}
	if !strings.Contains(app.View(), "free memory") {
		t.Error("full help should list the trim key")
	}
	app, _ = press(t, app, "?")
	if app.showHelp {
		t.Error("expected help hidden after second ?")
	}
}

func TestViewNotReady(t *testing.T) {
	app := NewApp(context.Background(), &mockController{}, nil, feed.State{})
	if got := app.View(); got != "Loading..." {
		t.Errorf("View() = %q, want Loading...", got)
	}
}

func TestViewBlockingError(t *testing.T) {
	app, _ := newTestApp(feed.State{Err: errors.New("network error: list top: HTTP 503")})
	view := app.View()

	if !strings.Contains(view, "Couldn't load stories") {
		t.Error("expected full-screen error when no stories are loaded")
	}
	if !strings.Contains(view, "HTTP 503") {
		t.Error("expected error message in view")
	}
}

func TestViewInlineError(t *testing.T) {
	app, _ := newTestApp(feed.State{Items: testItems(3), Err: feed.ErrPageUnavailable})
	view := app.View()

	if strings.Contains(view, "Couldn't load stories") {
		t.Error("full-screen error must not hide loaded stories")
	}
	if !strings.Contains(view, "Story 1") {
		t.Error("expected stories to remain visible")
	}
	if !strings.Contains(view, "Error: "+feed.ErrPageUnavailable.Error()) {
		t.Error("expected inline error")
	}
}

func TestViewStories(t *testing.T) {
	app, _ := newTestApp(feed.State{Items: testItems(3), FeedType: story.New, Total: 500, Offset: 20})
	view := app.View()

	for _, want := range []string{
		"New Stories",
		"1. Story 1",
		"example.com",
		"10 points",
		"by pg",
		"30 minutes ago",
		"2 hours ago",
		"3 stories loaded of 500",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewFooterStates(t *testing.T) {
	tests := []struct {
		name  string
		state feed.State
		want  string
	}{
		{"loading more", feed.State{Items: testItems(3), PageLoading: true}, "Loading more stories..."},
		{"end", feed.State{Items: testItems(3), ReachedEnd: true}, "You've reached the end"},
		{"initial", feed.State{InitialLoading: true}, "Loading top stories..."},
		{"empty feed", feed.State{ReachedEnd: true}, "No stories right now"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, _ := newTestApp(tc.state)
			if view := app.View(); !strings.Contains(view, tc.want) {
				t.Errorf("view missing %q:\n%s", tc.want, view)
			}
		})
	}
}

func TestCalcScrollOffset(t *testing.T) {
	tests := []struct {
		cursor, total, visible, want int
	}{
		{0, 0, 10, 0},
		{0, 50, 10, 0},
		{9, 50, 10, 0},
		{10, 50, 10, 1},
		{49, 50, 10, 40},
		{80, 50, 10, 40},
	}
	for _, tc := range tests {
		if got := calcScrollOffset(tc.cursor, tc.total, tc.visible); got != tc.want {
			t.Errorf("calcScrollOffset(%d, %d, %d) = %d, want %d", tc.cursor, tc.total, tc.visible, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo world", 5); got != "héll…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}
