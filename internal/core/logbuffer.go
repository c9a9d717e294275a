package core

import (
	"sync"
	"time"
)

// LogBuffer captures console output of one execution. It is safe for
// concurrent use so bindings may log from their own goroutines.
type LogBuffer struct {
	mu      sync.Mutex
	max     int
	entries []LogEntry
}

// NewLogBuffer returns a buffer holding at most max entries.
func NewLogBuffer(max int) *LogBuffer {
	if max <= 0 {
		max = DefaultMaxLogEntries
	}
	return &LogBuffer{max: max}
}

// Add appends an entry, truncating oversized messages and dropping entries
// past the cap.
func (b *LogBuffer) Add(level, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) >= b.max {
		return
	}
	if len(message) > MaxLogMessageSize {
		message = message[:MaxLogMessageSize] + "...(truncated)"
	}
	b.entries = append(b.entries, LogEntry{
		Level:   level,
		Message: message,
		Time:    time.Now(),
	})
}

// Drain returns the captured entries and empties the buffer.
func (b *LogBuffer) Drain() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.entries
	b.entries = nil
	return out
}

// Len reports the number of captured entries.
func (b *LogBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
