package pipeline

import (
	"sync"
	"time"
)

// Deduper recognises the repeated transmissions of one SAME header. Stations
// send every header three times in a row; only the first copy seen within
// the window is processed. It keeps at most maxEntries keys, evicting the
// least recently seen.
type Deduper struct {
	window     time.Duration
	maxEntries int

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently seen
	tail    *entry // least recently seen
}

type entry struct {
	key    string
	seenAt time.Time
	prev   *entry
	next   *entry
}

// NewDeduper creates a Deduper. A zero window disables deduplication.
func NewDeduper(window time.Duration, maxEntries int) *Deduper {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Deduper{
		window:     window,
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

// Seen records key at time at and reports whether it was already seen less
// than window earlier.
func (d *Deduper) Seen(key string, at time.Time) bool {
	if d == nil || d.window <= 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.entries[key]; ok {
		d.moveToFront(e)
		if at.Sub(e.seenAt) < d.window {
			return true
		}
		e.seenAt = at
		return false
	}

	e := &entry{key: key, seenAt: at}
	d.entries[key] = e
	d.addToFront(e)

	if len(d.entries) > d.maxEntries {
		d.evictTail()
	}
	return false
}

// Len returns the number of tracked keys.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *Deduper) moveToFront(e *entry) {
	if e == d.head {
		return
	}
	d.remove(e)
	d.addToFront(e)
}

func (d *Deduper) addToFront(e *entry) {
	e.next = d.head
	e.prev = nil
	if d.head != nil {
		d.head.prev = e
	}
	d.head = e
	if d.tail == nil {
		d.tail = e
	}
}

func (d *Deduper) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		d.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		d.tail = e.prev
	}
}

func (d *Deduper) evictTail() {
	if d.tail == nil {
		return
	}
	delete(d.entries, d.tail.key)
	d.remove(d.tail)
}
