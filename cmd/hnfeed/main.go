// Command hnfeed browses the Hacker News top and new story feeds.
//
// Usage:
//
//	hnfeed                     Interactive feed (TUI)
//	hnfeed ids <top|new>       Print the id universe of a feed
//	hnfeed item <id>           Print one item
//	hnfeed page <top|new> [n]  Load n pages headlessly and print them
//	hnfeed config init|show    Configuration utilities
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
