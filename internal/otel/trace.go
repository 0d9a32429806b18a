package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled is read once from HNFEED_TRACE at init. Atomic so tests can
// flip it while a drain goroutine is running.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("HNFEED_TRACE") != "")
}

// TraceEnabled reports whether debug-level events (page.start, page.stale)
// are written to the trail. They always reach the ring and the counters.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

func setTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
