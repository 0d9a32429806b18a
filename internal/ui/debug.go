package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/hnfeed/internal/otel"
)

// debugPanelChrome is the number of lines DebugPanel's border and vertical
// padding take. Must be updated if DebugPanel changes.
const debugPanelChrome = 4

// debugRecent is how many trail events the overlay lists.
const debugRecent = 20

// debugOverlay renders feed engine counters and the most recent trail
// events. counts are session totals; when nil the counters cover only the
// events still in the ring. Returns "" when no ring is attached.
func debugOverlay(ring *otel.RingBuffer, counts map[otel.EventKind]int, width, height int, now time.Time) string {
	if ring == nil {
		return ""
	}

	stats, title := counts, "Feed Stats (session)"
	if stats == nil {
		stats, title = ring.Stats(), "Feed Stats (recent)"
	}

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render(title))
	lines = append(lines, fmt.Sprintf("  ID lists:   %d complete, %d errors",
		stats[otel.KindIDsComplete], stats[otel.KindIDsError]))
	lines = append(lines, fmt.Sprintf("  Pages:      %d complete, %d empty, %d cancelled, %d stale",
		stats[otel.KindPageComplete], stats[otel.KindPageEmpty], stats[otel.KindPageCancel], stats[otel.KindPageStale]))
	lines = append(lines, fmt.Sprintf("  Items:      %d errors", stats[otel.KindItemError]))
	lines = append(lines, fmt.Sprintf("  Switches:   %d, trims: %d",
		stats[otel.KindFeedSwitch], stats[otel.KindFeedTrim]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range ring.Last(debugRecent) {
		line := fmt.Sprintf("  %6s  %-14s", formatAge(now.Sub(e.Time)), string(e.Kind))
		if e.Generation > 0 {
			line += fmt.Sprintf("  gen:%d", e.Generation)
		}
		if e.ItemID > 0 {
			line += fmt.Sprintf("  item:%d", e.ItemID)
		}
		if e.Kind == otel.KindPageComplete {
			line += fmt.Sprintf("  +%d @%d", e.Count, e.Offset)
		}
		if e.Err != "" {
			line += "  ERR:" + truncate(e.Err, 30)
		}
		lines = append(lines, line)
	}

	maxHeight := max(height-debugPanelChrome, 1)
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := max(min(76, width-4), 20)
	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// formatAge formats a duration compactly. Negative durations from clock
// skew clamp to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar shown under the overlay.
func debugStatusBar(width int) string {
	bar := "  [DEBUG]  " + HintKey.Render("D") + " close"
	if width > 0 {
		return StatusBar.Width(width).Render(bar)
	}
	return StatusBar.Render(bar)
}
