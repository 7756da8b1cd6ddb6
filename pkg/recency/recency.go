/*
Package recency keeps a bounded, most-recent-first list of nicks that spoke
in (or were addressed in) a scope.

Every record carries an "own" counter. It is raised to the list's own window
when a message involving the nick was directed at the local user, and every
later insertion into the same list lowers the counter of all other records by
one. A nick therefore stays ahead of plain recency for a number of unrelated
events and then quietly falls back into ordinary ordering.

	l := recency.New(time.Now)
	lim := recency.Limits{Capacity: 50, OwnWindow: 50}
	l.Add("alice", true, lim)
	l.Add("bob", false, lim)
	for _, rec := range l.Records() {
		fmt.Println(rec.Nick, rec.Own)
	}

A List is not safe for concurrent use.
*/
package recency

import (
	"time"

	list "github.com/bahlo/generic-list-go"

	"github.com/bastiangx/nickserve/internal/utils"
)

// Record is a snapshot of one tracked nick.
type Record struct {
	Nick string
	Own  int
	Seen time.Time
}

// Limits bounds a list. They are passed on every insertion so a config
// reload takes effect on the next message.
type Limits struct {
	Capacity  int
	OwnWindow int
}

// List is the recency list. The zero value is not usable; call New.
type List struct {
	items *list.List[*Record]
	index map[string]*list.Element[*Record]
	now   func() time.Time
}

// New creates an empty list. A nil clock means time.Now.
func New(clock func() time.Time) *List {
	if clock == nil {
		clock = time.Now
	}
	return &List{
		items: list.New[*Record](),
		index: make(map[string]*list.Element[*Record]),
		now:   clock,
	}
}

// Add inserts nick at the front, or moves it there if it is already tracked.
//
// An existing record that is not own-directed this time loses one point of
// its own counter here and is not touched by the decay pass that follows,
// which only walks the other records.
func (l *List) Add(nick string, own bool, lim Limits) {
	if lim.Capacity <= 0 {
		return
	}
	window := max(lim.OwnWindow, 0)
	key := utils.Fold(nick)

	var rec *Record
	if e, ok := l.index[key]; ok {
		rec = l.items.Remove(e)
		delete(l.index, key)
		switch {
		case own:
			rec.Own = window
		case rec.Own > 0:
			rec.Own--
		}
		rec.Own = min(rec.Own, window)
	} else {
		for l.items.Len() >= lim.Capacity {
			l.evictOldest()
		}
		rec = &Record{Nick: nick}
		if own {
			rec.Own = window
		}
	}
	rec.Seen = l.now()

	l.Decay()
	l.index[key] = l.items.PushFront(rec)
}

// Decay lowers the own counter of every record in the list by one.
func (l *List) Decay() {
	for e := l.items.Front(); e != nil; e = e.Next() {
		if e.Value.Own > 0 {
			e.Value.Own--
		}
	}
}

// Trim brings the list within lim: records beyond the capacity are evicted
// from the tail and own counters above the window are lowered to it. It is
// applied when limits shrink, so the list never waits for the next insertion
// to satisfy them.
func (l *List) Trim(lim Limits) {
	for l.items.Len() > max(lim.Capacity, 0) {
		l.evictOldest()
	}
	window := max(lim.OwnWindow, 0)
	for e := l.items.Front(); e != nil; e = e.Next() {
		e.Value.Own = min(e.Value.Own, window)
	}
}

func (l *List) evictOldest() {
	e := l.items.Back()
	if e == nil {
		return
	}
	delete(l.index, utils.Fold(e.Value.Nick))
	l.items.Remove(e)
}

// Remove drops nick from the list. It reports whether a record was removed.
func (l *List) Remove(nick string) bool {
	key := utils.Fold(nick)
	e, ok := l.index[key]
	if !ok {
		return false
	}
	delete(l.index, key)
	l.items.Remove(e)
	return true
}

// Rename changes the nick of a record in place, keeping its position, own
// counter and timestamp. A different record already holding newNick is
// dropped, since it describes an identity that no longer exists.
func (l *List) Rename(oldNick, newNick string) bool {
	oldKey, newKey := utils.Fold(oldNick), utils.Fold(newNick)
	e, ok := l.index[oldKey]
	if !ok {
		return false
	}
	if oldKey != newKey {
		if stale, ok := l.index[newKey]; ok {
			l.items.Remove(stale)
		}
		delete(l.index, oldKey)
		l.index[newKey] = e
	}
	e.Value.Nick = newNick
	return true
}

// Find returns the record for nick.
func (l *List) Find(nick string) (Record, bool) {
	e, ok := l.index[utils.Fold(nick)]
	if !ok {
		return Record{}, false
	}
	return *e.Value, true
}

// Records returns a front-to-back copy of the list.
func (l *List) Records() []Record {
	out := make([]Record, 0, l.items.Len())
	for e := l.items.Front(); e != nil; e = e.Next() {
		out = append(out, *e.Value)
	}
	return out
}

// Len returns the number of tracked nicks.
func (l *List) Len() int {
	return l.items.Len()
}

// Clear releases every record.
func (l *List) Clear() {
	l.items.Init()
	clear(l.index)
}
