package hooking

import (
	"sort"
	"sync"

	"github.com/sarchlab/csim/datarecording"
)

// SetStatsTable is the table that holds per-set statistics.
const SetStatsTable = "set_stats"

// SetStats counts the outcomes of the accesses to one set.
type SetStats struct {
	SetID     uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Accesses returns the number of accesses that reached the set.
func (s SetStats) Accesses() uint64 {
	return s.Hits + s.Misses
}

// SetStatsTracer counts hits, misses and evictions per set.
type SetStatsTracer struct {
	lock  sync.Mutex
	stats map[uint64]*SetStats
}

// NewSetStatsTracer creates a SetStatsTracer.
func NewSetStatsTracer() *SetStatsTracer {
	return &SetStatsTracer{
		stats: make(map[uint64]*SetStats),
	}
}

// Func counts the access if ctx is an access hook.
func (t *SetStatsTracer) Func(ctx HookCtx) {
	if ctx.Pos != HookPosAccess {
		return
	}

	item, ok := ctx.Item.(AccessItem)
	if !ok {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	s, found := t.stats[item.SetID]
	if !found {
		s = &SetStats{SetID: item.SetID}
		t.stats[item.SetID] = s
	}

	switch {
	case item.Hit:
		s.Hits++
	case item.Evicted:
		s.Misses++
		s.Evictions++
	default:
		s.Misses++
	}
}

// Get returns the statistics of one set. Untouched sets have zero counts.
func (t *SetStatsTracer) Get(setID uint64) SetStats {
	t.lock.Lock()
	defer t.lock.Unlock()

	s, found := t.stats[setID]
	if !found {
		return SetStats{SetID: setID}
	}

	return *s
}

// Stats returns the statistics of every touched set, ordered by set index.
func (t *SetStatsTracer) Stats() []SetStats {
	t.lock.Lock()
	defer t.lock.Unlock()

	stats := make([]SetStats, 0, len(t.stats))
	for _, s := range t.stats {
		stats = append(stats, *s)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].SetID < stats[j].SetID
	})

	return stats
}

// RecordTo writes the statistics of every touched set into recorder.
func (t *SetStatsTracer) RecordTo(recorder datarecording.DataRecorder) {
	recorder.CreateTable(SetStatsTable, SetStats{})

	for _, s := range t.Stats() {
		recorder.InsertData(SetStatsTable, s)
	}

	recorder.Flush()
}
