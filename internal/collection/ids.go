package collection

import (
	"sync"
	"time"
)

// IntIDs hands out strictly increasing millisecond-flavored ids:
// next = max(now in ms, last + 1). Two adds in the same millisecond still get
// distinct ids.
type IntIDs struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIntIDs returns a generator using clock, or time.Now when clock is nil.
func NewIntIDs(clock func() time.Time) *IntIDs {
	if clock == nil {
		clock = time.Now
	}
	return &IntIDs{now: clock}
}

// Observe raises the floor so future ids exceed every id in ids.
func (g *IntIDs) Observe(ids ...int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		if id > g.last {
			g.last = id
		}
	}
}

// Next returns a fresh id.
func (g *IntIDs) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
