package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/hnfeed/internal/feed"
	"github.com/abelbrown/hnfeed/internal/otel"
	"github.com/abelbrown/hnfeed/internal/story"
)

// loadMoreThreshold is how close to the last story the cursor must be
// before the next page is requested.
const loadMoreThreshold = 3

// Controller is the part of *feed.Controller the UI drives.
type Controller interface {
	LoadInitial(ctx context.Context)
	LoadNextPage(ctx context.Context)
	Retry(ctx context.Context)
	SwitchFeedType(ctx context.Context, t story.FeedType)
	ClearError()
	Trim()
}

// App is the root Bubble Tea model.
// IMPORTANT: App never mutates feed state. It forwards intents to the
// controller and renders the snapshots it receives via StateChanged.
type App struct {
	ctx     context.Context
	ctrl    Controller
	updates <-chan feed.State
	now     func() time.Time
	ring    *otel.RingBuffer // nil disables the debug overlay
	counts  func() map[otel.EventKind]int

	state     feed.State
	cursor    int
	width     int
	height    int
	ready     bool
	showHelp  bool
	showDebug bool

	help    help.Model
	spinner spinner.Model
}

// NewApp creates an App. updates is the controller's subscription channel
// and initial its current snapshot.
func NewApp(ctx context.Context, ctrl Controller, updates <-chan feed.State, initial feed.State) App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SourceBadge

	return App{
		ctx:     ctx,
		ctrl:    ctrl,
		updates: updates,
		now:     time.Now,
		state:   initial,
		help:    help.New(),
		spinner: s,
	}
}

// WithEventRing attaches the ring the debug overlay reads from.
func (a App) WithEventRing(ring *otel.RingBuffer) App {
	a.ring = ring
	return a
}

// WithEventCounts sets the source of session event totals shown in the
// debug overlay, typically (*otel.Logger).Counts.
func (a App) WithEventCounts(counts func() map[otel.EventKind]int) App {
	a.counts = counts
	return a
}

// Init starts listening for snapshots and kicks off the initial load.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		waitForState(a.updates),
		a.run(a.ctrl.LoadInitial),
		a.spinner.Tick,
	)
}

// waitForState blocks until the controller publishes the next snapshot.
func waitForState(updates <-chan feed.State) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return subscriptionClosed{}
		}
		return StateChanged{State: s}
	}
}

// run executes a blocking controller operation off the event loop.
// Its outcome arrives as a StateChanged message.
func (a App) run(op func(ctx context.Context)) tea.Cmd {
	return func() tea.Msg {
		op(a.ctx)
		return nil
	}
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.ready = true
		return a, nil

	case StateChanged:
		if msg.State.FeedType != a.state.FeedType {
			a.cursor = 0
		}
		a.state = msg.State
		a.clampCursor()
		return a, waitForState(a.updates)

	case subscriptionClosed:
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, keys.Help):
		a.showHelp = !a.showHelp
		a.help.ShowAll = a.showHelp
		return a, nil

	case key.Matches(msg, keys.Debug):
		a.showDebug = a.ring != nil && !a.showDebug
		return a, nil

	case key.Matches(msg, keys.Down):
		if a.cursor < len(a.state.Items)-1 {
			a.cursor++
		}
		return a, a.maybeLoadMore()

	case key.Matches(msg, keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case key.Matches(msg, keys.Top):
		a.cursor = 0
		return a, nil

	case key.Matches(msg, keys.Bottom):
		if len(a.state.Items) > 0 {
			a.cursor = len(a.state.Items) - 1
		}
		return a, a.maybeLoadMore()

	case key.Matches(msg, keys.Retry):
		return a, a.run(a.ctrl.Retry)

	case key.Matches(msg, keys.Toggle):
		next := a.state.FeedType.Toggle()
		a.cursor = 0
		return a, a.run(func(ctx context.Context) {
			a.ctrl.SwitchFeedType(ctx, next)
		})

	case key.Matches(msg, keys.Clear):
		a.ctrl.ClearError()
		return a, nil

	case key.Matches(msg, keys.Trim):
		a.ctrl.Trim()
		return a, nil
	}

	return a, nil
}

// maybeLoadMore requests the next page once the cursor nears the end of
// the list. The controller ignores duplicate requests, but skipping them
// here avoids spawning idle commands on every keypress.
func (a App) maybeLoadMore() tea.Cmd {
	s := a.state
	if len(s.Items) == 0 || s.Loading() || s.ReachedEnd || s.Err != nil {
		return nil
	}
	if a.cursor < len(s.Items)-loadMoreThreshold {
		return nil
	}
	return a.run(a.ctrl.LoadNextPage)
}

func (a *App) clampCursor() {
	if a.cursor >= len(a.state.Items) {
		a.cursor = max(len(a.state.Items)-1, 0)
	}
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showDebug {
		var counts map[otel.EventKind]int
		if a.counts != nil {
			counts = a.counts()
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			debugOverlay(a.ring, counts, a.width, a.height-1, a.now()),
			debugStatusBar(a.width),
		)
	}
	return render(a)
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// State returns the last snapshot received (for testing).
func (a App) State() feed.State {
	return a.state
}
