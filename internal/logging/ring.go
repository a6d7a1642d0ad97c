package logging

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultRingSize = 1000

// Entry is one buffered log line
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Error     string                 `json:"error,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// RingHook keeps the most recent log entries in memory for the operator API
type RingHook struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewRingHook creates a hook holding at most size entries
func NewRingHook(size int) *RingHook {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingHook{entries: make([]Entry, size)}
}

func (h *RingHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *RingHook) Fire(e *logrus.Entry) error {
	entry := Entry{
		Timestamp: e.Time,
		Level:     e.Level.String(),
		Message:   e.Message,
	}
	if len(e.Data) > 0 {
		entry.Fields = make(map[string]interface{}, len(e.Data))
		for k, v := range e.Data {
			if k == logrus.ErrorKey {
				entry.Error = fmt.Sprint(v)
				continue
			}
			entry.Fields[k] = v
		}
	}

	h.mu.Lock()
	h.entries[h.next] = entry
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
	h.mu.Unlock()
	return nil
}

// Recent returns buffered entries oldest first. A non-empty minLevel keeps
// only entries at that severity or worse.
func (h *RingHook) Recent(minLevel string) []Entry {
	threshold := logrus.TraceLevel
	if minLevel != "" {
		if lvl, err := logrus.ParseLevel(minLevel); err == nil {
			threshold = lvl
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	var ordered []Entry
	if h.full {
		ordered = append(ordered, h.entries[h.next:]...)
	}
	ordered = append(ordered, h.entries[:h.next]...)

	out := make([]Entry, 0, len(ordered))
	for _, e := range ordered {
		lvl, err := logrus.ParseLevel(e.Level)
		if err != nil || lvl > threshold {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Clear drops every buffered entry
func (h *RingHook) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make([]Entry, len(h.entries))
	h.next = 0
	h.full = false
}
