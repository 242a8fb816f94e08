// Package undo keeps a bounded history of text replaced by enhancements.
// Restoring an entry only puts the old text back on the clipboard; the
// document itself is never reverted.
package undo

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scramble-ai/scramble/internal/document"
)

// DefaultCapacity is the number of entries kept per document context.
const DefaultCapacity = 10

// Entry records the text that a reconciliation replaced.
type Entry struct {
	ID           string
	OriginalText string
	Anchor       document.Anchor
	Timestamp    time.Time
}

// Ledger is a capped stack, most recent on top.
type Ledger struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
}

func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{capacity: capacity}
}

// Push appends e, evicting the oldest entry once capacity is exceeded.
// An empty ID is filled in.
func (l *Ledger) Push(e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.capacity; over > 0 {
		l.entries = append([]Entry(nil), l.entries[over:]...)
	}
}

// Pop removes and returns the most recent entry.
func (l *Ledger) Pop() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	e := l.entries[len(l.entries)-1]
	l.entries = l.entries[:len(l.entries)-1]
	return e, true
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns the history, most recent first.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}
