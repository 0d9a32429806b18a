// Package story defines the item type that flows from the remote API to the
// feed controller and on to the view, plus the derived display labels.
package story

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/net/publicsuffix"
)

// FallbackSource is shown when an item has no usable link (text posts).
const FallbackSource = "Hacker News"

// FeedType selects which ranked ID list is requested.
type FeedType int

const (
	Top FeedType = iota
	New
)

// String returns the lowercase feed name ("top", "new").
func (t FeedType) String() string {
	switch t {
	case Top:
		return "top"
	case New:
		return "new"
	default:
		return fmt.Sprintf("feed(%d)", int(t))
	}
}

// Title returns the feed name for headers.
func (t FeedType) Title() string {
	switch t {
	case New:
		return "New"
	default:
		return "Top"
	}
}

// Toggle returns the other feed type.
func (t FeedType) Toggle() FeedType {
	if t == Top {
		return New
	}
	return Top
}

// ParseFeedType accepts "top" or "new" (case-insensitive).
func ParseFeedType(s string) (FeedType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "":
		return Top, nil
	case "new":
		return New, nil
	default:
		return Top, fmt.Errorf("unknown feed type %q (want top or new)", s)
	}
}

// Item is a single story as returned by the item endpoint.
// Items are values and are never modified after decoding.
type Item struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"` // empty for text posts
	Author  string `json:"by"`
	Time    int64  `json:"time"`           // Unix seconds
	Text    string `json:"text,omitempty"` // HTML body for text posts
	Kind    string `json:"type"`
	Score   *int   `json:"score,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
	Dead    bool   `json:"dead,omitempty"`
}

// Published returns the publish time.
func (i Item) Published() time.Time {
	return time.Unix(i.Time, 0)
}

// HasLink reports whether the item points at an external page.
func (i Item) HasLink() bool {
	return strings.TrimSpace(i.URL) != ""
}

// DisplaySource returns the registrable domain of the item's URL
// ("bbc.co.uk" for "https://news.bbc.co.uk/x"), the bare host when no public
// suffix applies (IPs, localhost), or FallbackSource when there is no URL.
func (i Item) DisplaySource() string {
	if !i.HasLink() {
		return FallbackSource
	}
	u, err := url.Parse(i.URL)
	if err != nil {
		return FallbackSource
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return FallbackSource
	}
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// ScoreLabel renders the score ("1 point", "1,234 points").
// Empty when the item carries no score.
func (i Item) ScoreLabel() string {
	if i.Score == nil {
		return ""
	}
	if *i.Score == 1 {
		return "1 point"
	}
	return humanize.Comma(int64(*i.Score)) + " points"
}

// Age returns the relative-age label of the item as seen at now.
func (i Item) Age(now time.Time) string {
	return RelativeAge(i.Published(), now)
}

// RelativeAge buckets the distance between published and now into minutes,
// hours or days. Each bucket rounds up: 90 seconds is "2 minutes ago" and
// exactly 60 minutes is "1 hour ago".
func RelativeAge(published, now time.Time) string {
	secs := now.Sub(published).Seconds()
	if secs <= 0 {
		return "just now"
	}

	minutes := int(math.Ceil(secs / 60))
	if minutes < 60 {
		return plural(minutes, "minute")
	}

	hours := int(math.Ceil(secs / 3600))
	if hours < 24 {
		return plural(hours, "hour")
	}

	return plural(int(math.Ceil(secs/86400)), "day")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
