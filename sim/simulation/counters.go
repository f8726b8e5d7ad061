package simulation

import (
	"fmt"
	"sync/atomic"

	"github.com/sarchlab/csim/mem/cache/tagging"
)

// Counters are the totals of one simulation run.
type Counters struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Accesses returns the number of elementary accesses that were simulated.
func (c Counters) Accesses() uint64 {
	return c.Hits + c.Misses
}

// String renders the counters the way the final report prints them.
func (c Counters) String() string {
	return fmt.Sprintf("hits:%d misses:%d evictions:%d",
		c.Hits, c.Misses, c.Evictions)
}

// liveCounters can be updated by several workers and read while a run is in
// progress.
type liveCounters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func (c *liveCounters) count(o tagging.Outcome) {
	if o.Hit {
		c.hits.Add(1)
		return
	}

	c.misses.Add(1)

	if o.Evicted {
		c.evictions.Add(1)
	}
}

func (c *liveCounters) snapshot() Counters {
	return Counters{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (c *liveCounters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}
