package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/hnfeed/internal/logging"
	"github.com/abelbrown/hnfeed/internal/otel"
	"github.com/abelbrown/hnfeed/internal/story"
	"github.com/abelbrown/hnfeed/internal/ui"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var feedFlag string
	var verbose bool

	ctx := newCommandContext(&configFlag, &verbose)

	rootCmd := &cobra.Command{
		Use:           "hnfeed",
		Short:         "Browse Hacker News top and new stories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, ctx, feedFlag)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr (headless commands)")
	rootCmd.Flags().StringVarP(&feedFlag, "feed", "f", "", "Feed to open: top or new (default from config)")

	rootCmd.AddCommand(newIDsCommand(ctx))
	rootCmd.AddCommand(newItemCommand(ctx))
	rootCmd.AddCommand(newPageCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

// runTUI wires the controller to the Bubble Tea app and blocks until quit.
func runTUI(cmd *cobra.Command, ctx *commandContext, feedFlag string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	feedType := cfg.FeedType()
	if strings.TrimSpace(feedFlag) != "" {
		if feedType, err = story.ParseFeedType(feedFlag); err != nil {
			return err
		}
	}

	if err := logging.Init(cfg.Log.Dir, cfg.Log.Level); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()

	events, err := ctx.openEvents()
	if err != nil {
		return err
	}
	defer events.Close()

	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events.SetRingBuffer(ring)

	events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindStartup,
		Comp:  "main",
		Feed:  feedType.String(),
	})
	logging.Info("session", "id", events.SessionID(), "feed", feedType)

	ctrl, err := ctx.newController(feedType, events)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	runCtx := cmd.Context()
	app := ui.NewApp(runCtx, ctrl, ctrl.Subscribe(), ctrl.Snapshot()).
		WithEventRing(ring).
		WithEventCounts(events.Counts)
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(runCtx))
	_, runErr := program.Run()

	counts := events.Counts()
	events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindShutdown,
		Comp:  "main",
		Count: len(ctrl.Snapshot().Items),
		Extra: map[string]any{
			"pages":       counts[otel.KindPageComplete],
			"item_errors": counts[otel.KindItemError],
			"dropped":     events.Dropped(),
		},
	})
	logging.Info("session summary", "pages", counts[otel.KindPageComplete], "item_errors", counts[otel.KindItemError])
	if runErr != nil {
		logging.Error("tui exited", "err", runErr)
		return fmt.Errorf("run tui: %w", runErr)
	}
	return nil
}
