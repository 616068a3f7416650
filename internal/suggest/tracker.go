// Package suggest orders autocomplete lookups so a slow response to an old
// query never replaces the answer to a newer one.
package suggest

import "sync"

// Tracker hands out one sequence number per query and remembers the newest
// sequence whose response has been accepted. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	issued   uint64
	accepted uint64
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Next returns the sequence number for a new query.
func (t *Tracker) Next() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issued++
	return t.issued
}

// Accept reports whether the response for seq may be shown. A response is
// dropped once any newer sequence has been accepted.
func (t *Tracker) Accept(seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq == 0 || seq > t.issued || seq <= t.accepted {
		return false
	}
	t.accepted = seq
	return true
}
