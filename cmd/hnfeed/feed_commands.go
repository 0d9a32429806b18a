package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abelbrown/hnfeed/internal/feed"
	"github.com/abelbrown/hnfeed/internal/logging"
	"github.com/abelbrown/hnfeed/internal/otel"
	"github.com/abelbrown/hnfeed/internal/story"
)

// feedArgs is the completion list for feed type arguments.
var feedArgs = []string{story.Top.String(), story.New.String()}

// initHeadlessLogging sends diagnostics to stderr when --verbose is set.
func initHeadlessLogging(cmd *cobra.Command, ctx *commandContext) error {
	if !ctx.verboseEnabled() {
		return nil
	}
	return logging.InitWriter(cmd.ErrOrStderr(), "debug")
}

func newIDsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:       "ids <top|new>",
		Short:     "Print the ranked id list of a feed",
		Args:      cobra.ExactArgs(1),
		ValidArgs: feedArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			feedType, err := story.ParseFeedType(args[0])
			if err != nil {
				return err
			}
			if err := initHeadlessLogging(cmd, ctx); err != nil {
				return err
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}

			ids, err := client.ListIDs(cmd.Context(), feedType)
			if err != nil {
				return fmt.Errorf("list %s ids: %w", feedType, err)
			}

			out := cmd.OutOrStdout()
			shown := ids
			if limit > 0 && limit < len(shown) {
				shown = shown[:limit]
			}
			for _, id := range shown {
				fmt.Fprintln(out, id)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s ids in %s feed\n", humanize.Comma(int64(len(ids))), feedType)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Print at most this many ids (0 for all)")
	return cmd
}

func newItemCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "item <id>",
		Short: "Print a single item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			if err := initHeadlessLogging(cmd, ctx); err != nil {
				return err
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}

			item, err := client.GetItem(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get item %d: %w", id, err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(item)
			}
			printItemDetail(out, item, time.Now())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the item as JSON")
	return cmd
}

func printItemDetail(out io.Writer, item story.Item, now time.Time) {
	fmt.Fprintln(out, item.Title)
	fmt.Fprintf(out, "  id:     %d\n", item.ID)
	fmt.Fprintf(out, "  source: %s\n", item.DisplaySource())
	if score := item.ScoreLabel(); score != "" {
		fmt.Fprintf(out, "  score:  %s\n", score)
	}
	if item.Author != "" {
		fmt.Fprintf(out, "  by:     %s\n", item.Author)
	}
	fmt.Fprintf(out, "  posted: %s\n", item.Age(now))
	if item.HasLink() {
		fmt.Fprintf(out, "  url:    %s\n", item.URL)
	}
	if item.Text != "" {
		fmt.Fprintf(out, "\n%s\n", item.Text)
	}
}

func newPageCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "page <top|new> [pages]",
		Short:     "Load pages of a feed headlessly and print the merged list",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: feedArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			feedType, err := story.ParseFeedType(args[0])
			if err != nil {
				return err
			}
			pages := 1
			if len(args) == 2 {
				if pages, err = strconv.Atoi(args[1]); err != nil || pages < 1 {
					return fmt.Errorf("pages must be a positive number, got %q", args[1])
				}
			}
			if err := initHeadlessLogging(cmd, ctx); err != nil {
				return err
			}

			ctrl, err := ctx.newController(feedType, otel.Discard)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			runCtx := cmd.Context()
			ctrl.LoadInitial(runCtx)
			for i := 1; i < pages; i++ {
				s := ctrl.Snapshot()
				if s.ReachedEnd || s.Err != nil {
					break
				}
				ctrl.LoadNextPage(runCtx)
			}

			s := ctrl.Snapshot()
			if s.Blocking() {
				return fmt.Errorf("load %s feed: %w", feedType, s.Err)
			}
			printState(cmd.OutOrStdout(), s, time.Now())
			if s.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", s.ErrMessage())
			}
			return nil
		},
	}
	return cmd
}

func printState(out io.Writer, s feed.State, now time.Time) {
	for i, item := range s.Items {
		fmt.Fprintf(out, "%3d. %s\n", i+1, item.Title)
		meta := []string{item.DisplaySource()}
		if score := item.ScoreLabel(); score != "" {
			meta = append(meta, score)
		}
		if item.Author != "" {
			meta = append(meta, "by "+item.Author)
		}
		meta = append(meta, item.Age(now))
		fmt.Fprintf(out, "     %s\n", strings.Join(meta, " · "))
	}

	summary := fmt.Sprintf("%s: %d stories, %d of %d ids consumed", s.FeedType.Title(), len(s.Items), s.Offset, s.Total)
	if s.ReachedEnd {
		summary += ", end of feed"
	}
	fmt.Fprintln(out, summary)
}
