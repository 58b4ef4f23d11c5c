package main

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type clickEntry struct {
	onClicked func()
	expires   time.Time
}

// clickTable maps the opaque tokens handed out with suggestions back to the
// suggestion's click handler. Entries expire after ttl, and the oldest entries
// are dropped once capacity is reached.
type clickTable struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]clickEntry
	order    []string
	now      func() time.Time
}

func newClickTable(ttl time.Duration, capacity int) *clickTable {
	if capacity <= 0 {
		capacity = 1
	}
	return &clickTable{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]clickEntry),
		now:      time.Now,
	}
}

// issue stores fn and returns the token that fires it
func (ct *clickTable) issue(fn func()) string {
	token := uuid.NewString()

	ct.mu.Lock()
	defer ct.mu.Unlock()

	now := ct.now()
	ct.expire(now)

	for len(ct.order) >= ct.capacity {
		delete(ct.entries, ct.order[0])
		ct.order = ct.order[1:]
	}

	ct.entries[token] = clickEntry{onClicked: fn, expires: now.Add(ct.ttl)}
	ct.order = append(ct.order, token)

	return token
}

// fire runs the handler for token. It reports false for unknown or expired tokens.
func (ct *clickTable) fire(token string) bool {
	ct.mu.Lock()
	entry, ok := ct.entries[token]
	ct.mu.Unlock()

	if ok == false || ct.now().After(entry.expires) {
		return false
	}

	entry.onClicked()
	return true
}

func (ct *clickTable) size() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return len(ct.entries)
}

// expire drops entries from the front of the issue order that are past their
// expiry; entries are issued with the same ttl, so the order is by expiry too
func (ct *clickTable) expire(now time.Time) {
	n := 0
	for n < len(ct.order) {
		entry, ok := ct.entries[ct.order[n]]
		if ok && !now.After(entry.expires) {
			break
		}
		delete(ct.entries, ct.order[n])
		n++
	}
	ct.order = ct.order[n:]
}
