package dispatch

import (
	"sync"
	"time"

	"github.com/rickb777/date/v2/timespan"
)

type TimeSpan = timespan.TimeSpan

// RevisionKind names what a revision changed.
type RevisionKind string

const (
	RevisionClass   RevisionKind = "class"
	RevisionGeneric RevisionKind = "generic"
	RevisionMethod  RevisionKind = "method"
)

// Revision records one committed definition.
// Generation is the dispatch cache generation right after the commit.
// Definitions that changed nothing are not recorded.
type Revision struct {
	Generation uint64
	Kind       RevisionKind
	Name       string
	Span       TimeSpan
}

// history is a bounded ring of revisions in commit order, oldest first.
type history struct {
	mu        sync.Mutex
	revisions []Revision
	next      int
	full      bool
}

func newHistory(size int) *history {
	return &history{revisions: make([]Revision, size)}
}

func (h *history) record(rev Revision) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.revisions[h.next] = rev
	h.next = (h.next + 1) % len(h.revisions)
	if h.next == 0 {
		h.full = true
	}
}

func (h *history) snapshot() []Revision {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.full {
		return append([]Revision(nil), h.revisions[:h.next]...)
	}
	out := make([]Revision, 0, len(h.revisions))
	out = append(out, h.revisions[h.next:]...)
	return append(out, h.revisions[:h.next]...)
}

func spanSince(start time.Time) TimeSpan {
	return timespan.BetweenTimes(start, time.Now())
}
