package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/hnfeed/internal/feed"
	"github.com/abelbrown/hnfeed/internal/story"
)

// linesPerItem is the title line plus the meta line.
const linesPerItem = 2

func render(a App) string {
	s := a.state
	header := Header.Render(s.FeedType.Title() + " Stories")

	helpView := a.help.View(keys)
	if a.showHelp {
		helpView = HelpStyle.Render(helpView)
	}

	var body string
	switch {
	case s.Blocking():
		body = renderErrorScreen(s, a.width)
	case s.Empty() && s.Loading():
		body = HelpStyle.Render(a.spinner.View() + " Loading " + s.FeedType.String() + " stories...")
	case s.Empty() && s.ReachedEnd:
		body = HelpStyle.Render("No stories right now. Press 'r' to reload.")
	default:
		reserved := lipgloss.Height(header) + lipgloss.Height(helpView) + 2 // footer + status
		body = RenderStories(s.Items, a.cursor, a.width, a.height-reserved, a.now())
		if footer := renderFooter(s, a.spinner.View()); footer != "" {
			body += footer + "\n"
		}
	}

	status := RenderStatusBar(s, a.cursor, a.width)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, status, helpView)
}

// renderErrorScreen is shown only when there is nothing else to display.
func renderErrorScreen(s feed.State, width int) string {
	msg := lipgloss.JoinVertical(lipgloss.Left,
		ErrorStyle.Render("Couldn't load stories"),
		"",
		s.ErrMessage(),
		"",
		HintKey.Render("r")+" retry  "+HintKey.Render("t")+" switch feed",
	)
	box := ErrorScreen.Render(msg)
	if width > 0 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, box)
	}
	return box
}

// renderFooter returns the status line below the list: the inline error,
// a loading indicator or the end-of-feed marker.
func renderFooter(s feed.State, spin string) string {
	switch {
	case s.Err != nil:
		return ErrorStyle.Render("Error: " + s.ErrMessage() + " (r retry, x dismiss)")
	case s.PageLoading:
		return FooterText.Render(spin + " Loading more stories...")
	case s.ReachedEnd:
		return FooterText.Render("You've reached the end")
	}
	return ""
}

// RenderStories renders the visible window of stories, keeping the cursor
// on screen.
func RenderStories(items []story.Item, cursor, width, height int, now time.Time) string {
	if len(items) == 0 {
		return ""
	}

	visible := max(height/linesPerItem, 1)
	offset := calcScrollOffset(cursor, len(items), visible)

	var b strings.Builder
	for i := offset; i < len(items) && i < offset+visible; i++ {
		b.WriteString(renderItem(items[i], i+1, i == cursor, width, now))
		b.WriteString("\n")
	}
	return b.String()
}

// calcScrollOffset returns the first visible index so that cursor stays
// within a window of visible items.
func calcScrollOffset(cursor, total, visible int) int {
	if total == 0 || cursor < 0 {
		return 0
	}
	cursor = min(cursor, total-1)
	if cursor >= visible {
		return cursor - visible + 1
	}
	return 0
}

func renderItem(item story.Item, rank int, selected bool, width int, now time.Time) string {
	title := fmt.Sprintf("%3d. %s", rank, item.Title)
	if width > 8 {
		title = truncate(title, width-4)
	}

	style := NormalItem
	if selected {
		style = SelectedItem
	}
	return style.Render(title) + "\n" + MetaText.Render(metaLine(item, now))
}

// metaLine joins the non-empty labels: source, score, author, age.
func metaLine(item story.Item, now time.Time) string {
	parts := []string{"     " + SourceBadge.Render(item.DisplaySource())}
	if score := item.ScoreLabel(); score != "" {
		parts = append(parts, score)
	}
	if item.Author != "" {
		parts = append(parts, "by "+item.Author)
	}
	parts = append(parts, item.Age(now))
	return strings.Join(parts, " · ")
}

// truncate shortens s to width runes, ending in an ellipsis.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

// RenderStatusBar renders the feed name, the load count and the position.
func RenderStatusBar(s feed.State, cursor, width int) string {
	left := fmt.Sprintf(" %s · %s loaded", s.FeedType.Title(), storyCount(len(s.Items)))
	if s.Total > 0 {
		left += fmt.Sprintf(" of %s", humanize.Comma(int64(s.Total)))
	}

	right := ""
	if len(s.Items) > 0 {
		right = fmt.Sprintf("%d/%d ", cursor+1, len(s.Items))
	}

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right)-2, 0)
	bar := left + strings.Repeat(" ", padding) + right
	if width > 0 {
		return StatusBar.Width(width).Render(bar)
	}
	return StatusBar.Render(bar)
}

func storyCount(n int) string {
	if n == 1 {
		return "1 story"
	}
	return humanize.Comma(int64(n)) + " stories"
}
