package story

import (
	"encoding/json"
	"testing"
	"time"
)

func intPtr(n int) *int { return &n }

func TestRelativeAge(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"future", -time.Minute, "just now"},
		{"zero", 0, "just now"},
		{"one second rounds up", time.Second, "1 minute ago"},
		{"exactly one minute", time.Minute, "1 minute ago"},
		{"ninety seconds", 90 * time.Second, "2 minutes ago"},
		{"59 minutes", 59 * time.Minute, "59 minutes ago"},
		{"exactly 60 minutes", 60 * time.Minute, "1 hour ago"},
		{"90 minutes", 90 * time.Minute, "2 hours ago"},
		{"23 hours", 23 * time.Hour, "23 hours ago"},
		{"exactly 1440 minutes", 1440 * time.Minute, "1 day ago"},
		{"36 hours", 36 * time.Hour, "2 days ago"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RelativeAge(now.Add(-tc.ago), now)
			if got != tc.want {
				t.Errorf("RelativeAge(%v ago) = %q, want %q", tc.ago, got, tc.want)
			}
		})
	}
}

func TestDisplaySource(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/test", "example.com"},
		{"https://www.example.com/a?b=c", "example.com"},
		{"https://news.bbc.co.uk/story", "bbc.co.uk"},
		{"https://user.github.io/post", "user.github.io"},
		{"http://127.0.0.1:8080/x", "127.0.0.1"},
		{"", FallbackSource},
		{"   ", FallbackSource},
		{"not a url", FallbackSource},
	}

	for _, tc := range tests {
		item := Item{ID: 1, URL: tc.url}
		if got := item.DisplaySource(); got != tc.want {
			t.Errorf("DisplaySource(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestScoreLabel(t *testing.T) {
	tests := []struct {
		score *int
		want  string
	}{
		{nil, ""},
		{intPtr(0), "0 points"},
		{intPtr(1), "1 point"},
		{intPtr(42), "42 points"},
		{intPtr(1234), "1,234 points"},
	}
	for _, tc := range tests {
		item := Item{ID: 1, Score: tc.score}
		if got := item.ScoreLabel(); got != tc.want {
			t.Errorf("ScoreLabel() = %q, want %q", got, tc.want)
		}
	}
}

func TestItemDecode(t *testing.T) {
	body := `{"by":"dhouston","descendants":71,"id":8863,"kids":[9224],"score":111,
		"time":1175714200,"title":"My YC app: Dropbox","type":"story","url":"http://www.getdropbox.com/u/2/screencast.html"}`

	var item Item
	if err := json.Unmarshal([]byte(body), &item); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if item.ID != 8863 || item.Author != "dhouston" || item.Kind != "story" {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Score == nil || *item.Score != 111 {
		t.Errorf("score = %v, want 111", item.Score)
	}
	if got := item.DisplaySource(); got != "getdropbox.com" {
		t.Errorf("DisplaySource() = %q", got)
	}
	if !item.Published().Equal(time.Unix(1175714200, 0)) {
		t.Errorf("Published() = %v", item.Published())
	}
}

func TestTextPostHasNoScoreOrLink(t *testing.T) {
	var item Item
	if err := json.Unmarshal([]byte(`{"id":2,"title":"Ask HN","by":"pg","time":1,"text":"hi","type":"story"}`), &item); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if item.HasLink() {
		t.Error("text post should have no link")
	}
	if item.Score != nil {
		t.Error("missing score should decode as nil")
	}
	if item.DisplaySource() != FallbackSource {
		t.Errorf("DisplaySource() = %q", item.DisplaySource())
	}
}

func TestParseFeedType(t *testing.T) {
	for in, want := range map[string]FeedType{"top": Top, "TOP": Top, " new ": New, "": Top} {
		got, err := ParseFeedType(in)
		if err != nil {
			t.Errorf("ParseFeedType(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseFeedType(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseFeedType("best"); err == nil {
		t.Error("expected error for unknown feed type")
	}
	if Top.Toggle() != New || New.Toggle() != Top {
		t.Error("Toggle should flip between top and new")
	}
}
