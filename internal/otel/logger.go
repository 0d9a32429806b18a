package otel

// Goroutine safety:
// The drain goroutine is the sole reader of l.ch and the sole writer to l.w.
// l.mu guards the ring pointer and the counters; the ring has its own lock.
// Emit may be called from any goroutine, including concurrently with Close.

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// writerChanSize is the capacity of the async write channel.
// At ~200 bytes/event, 4096 events buffers ~800KB.
const writerChanSize = 4096

// logEntry carries the encoded line for the trail and the Event itself for
// the ring, so Dur survives into the debug overlay. data is nil for debug
// events while tracing is off.
type logEntry struct {
	data []byte
	ev   Event
}

// Logger serializes events as JSONL via an async background writer.
type Logger struct {
	mu        sync.Mutex
	ring      *RingBuffer       // nil until SetRingBuffer
	counts    map[EventKind]int // session totals, updated by drain
	sessionID string
	ch        chan logEntry
	w         io.Writer
	closer    io.Closer     // non-nil when the Logger owns the file
	dropped   atomic.Uint64 // dropped due to full channel, encode failure, or write error
	closed    atomic.Bool   // true after Close(); prevents send-on-closed-channel panic
	done      chan struct{} // closed when drain goroutine exits
	closeOnce sync.Once
}

// NewLogger creates a Logger writing JSONL to w asynchronously.
// Starts a background drain goroutine. Call Close() to flush and stop.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		sessionID: uuid.NewString(),
		ch:        make(chan logEntry, writerChanSize),
		counts:    make(map[EventKind]int),
		w:         w,
		done:      make(chan struct{}),
	}
	go l.drain()
	return l
}

// NewFileLogger appends events to path, creating parent directories.
// The file is closed by Close().
func NewFileLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create event directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	l := NewLogger(f)
	l.closer = f
	return l, nil
}

// NewNullLogger creates a Logger that discards output.
// Callers should still call Close() to stop the drain goroutine.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

func (l *Logger) drain() {
	defer close(l.done)
	for entry := range l.ch {
		if entry.data != nil {
			if _, err := l.w.Write(entry.data); err != nil {
				l.dropped.Add(1)
			}
		}

		l.mu.Lock()
		l.counts[entry.ev.Kind]++
		ring := l.ring
		l.mu.Unlock()
		if ring != nil {
			ring.Push(entry.ev)
		}
	}
}

// Emit writes an event to the JSONL trail. Debug-level events are only
// written when TraceEnabled. Sets Time (if zero) and
// SessionID. Non-blocking: if the channel is full or the logger is closed,
// the event is dropped and the drop counter is incremented.
//
// If Close() races between the closed-flag check and the channel send, the
// resulting panic is recovered and the event is counted as dropped.
func (l *Logger) Emit(e Event) {
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID

	var data []byte
	if e.Level != LevelDebug || TraceEnabled() {
		encoded, err := json.Marshal(e)
		if err != nil {
			l.dropped.Add(1)
			return
		}
		data = append(encoded, '\n')
	}

	select {
	case l.ch <- logEntry{data: data, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// SetRingBuffer attaches a ring that receives every written event.
func (l *Logger) SetRingBuffer(ring *RingBuffer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring = ring
}

// Counts returns how many events of each kind have been drained this
// session. Unlike the ring, the totals never wrap.
func (l *Logger) Counts() map[EventKind]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.counts)
}

// SessionID returns the id stamped on every event of this run.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// Dropped returns the number of events dropped since creation.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close flushes pending events, stops the drain goroutine, closes an owned
// file and reports dropped events to stderr.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		<-l.done

		if l.closer != nil {
			l.closer.Close()
		}
		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "hnfeed: %d events dropped during session %s\n", d, l.sessionID)
		}
	})
}
