// Package otel records the feed engine's lifecycle as an event trail.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and a background drain
// goroutine, so emitting from a fetch worker never blocks on disk.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// ID universe
	KindIDsStart    EventKind = "ids.start"
	KindIDsComplete EventKind = "ids.complete"
	KindIDsError    EventKind = "ids.error"

	// Pages
	KindPageStart    EventKind = "page.start"
	KindPageComplete EventKind = "page.complete"
	KindPageEmpty    EventKind = "page.empty"  // every item in a non-empty page failed
	KindPageCancel   EventKind = "page.cancel" // context ended mid-page; cursor kept
	KindPageEnd      EventKind = "page.end"
	KindPageStale    EventKind = "page.stale" // result dropped after a feed reset

	// Items
	KindItemError EventKind = "item.error"

	// Controller
	KindFeedSwitch EventKind = "feed.switch"
	KindFeedTrim   EventKind = "feed.trim"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
)

// Event is the universal trail record. Every field except Kind and Time is
// optional. Serialized as a single JSONL line.
type Event struct {
	Time       time.Time      `json:"t"`
	Level      Level          `json:"level,omitempty"`
	Kind       EventKind      `json:"kind"`
	Comp       string         `json:"comp,omitempty"` // "feed", "fetch", "main"
	SessionID  string         `json:"session_id,omitempty"`
	Feed       string         `json:"feed,omitempty"` // "top", "new"
	Generation uint64         `json:"gen,omitempty"`
	Offset     int            `json:"offset,omitempty"`
	ItemID     int            `json:"item_id,omitempty"`
	Count      int            `json:"count,omitempty"`
	Dur        time.Duration  `json:"-"`
	DurMs      float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Err        string         `json:"err,omitempty"`
	Msg        string         `json:"msg,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}

// Emitter is the subset of *Logger that components depend on.
type Emitter interface {
	Emit(e Event)
}

type discard struct{}

func (discard) Emit(Event) {}

// Discard is an Emitter that drops every event without starting a goroutine.
var Discard Emitter = discard{}
