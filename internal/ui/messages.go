// Package ui provides the Bubble Tea TUI for hnfeed.
package ui

import "github.com/abelbrown/hnfeed/internal/feed"

// StateChanged carries a new controller snapshot.
type StateChanged struct {
	State feed.State
}

// subscriptionClosed is sent when the controller stops publishing.
type subscriptionClosed struct{}
