package feed

import (
	"errors"

	"github.com/abelbrown/hnfeed/internal/story"
)

// ErrPageUnavailable reports a non-empty page where every item failed to load.
// The cursor stays on that page so Retry requests it again.
var ErrPageUnavailable = errors.New("feed: no stories on this page could be loaded")

// State is an immutable snapshot of the feed. Items is a private copy.
type State struct {
	Items          []story.Item // newest first, unique by ID
	FeedType       story.FeedType
	Offset         int // ids of the universe consumed so far
	Total          int // size of the id universe, 0 before it is loaded
	InitialLoading bool
	PageLoading    bool
	ReachedEnd     bool
	Err            error
}

// Loading reports whether any load is in flight.
func (s State) Loading() bool {
	return s.InitialLoading || s.PageLoading
}

// Empty reports whether there is nothing to show yet.
func (s State) Empty() bool {
	return len(s.Items) == 0
}

// Blocking reports whether an error should replace the story list.
// With stories on screen the error is shown inline instead.
func (s State) Blocking() bool {
	return s.Err != nil && len(s.Items) == 0
}

// ErrMessage returns a short message for Err, or "" when there is none.
func (s State) ErrMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}
