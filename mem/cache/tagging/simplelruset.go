package tagging

import (
	"github.com/hashicorp/golang-lru/simplelru"
)

// simpleLRUSet delegates the recency bookkeeping to golang-lru.
type simpleLRUSet struct {
	capacity int
	lru      *simplelru.LRU

	lastEvicted uint64
}

// NewSimpleLRUSet creates an empty set backed by a golang-lru cache. It
// behaves exactly like the set returned by NewSet with an LRUVictimFinder.
func NewSimpleLRUSet(capacity int) Set {
	mustHavePositiveCapacity(capacity)

	s := &simpleLRUSet{capacity: capacity}

	lru, err := simplelru.NewLRU(capacity, s.onEvict)
	if err != nil {
		panic(err)
	}

	s.lru = lru

	return s
}

func (s *simpleLRUSet) onEvict(key, _ interface{}) {
	s.lastEvicted = key.(uint64)
}

func (s *simpleLRUSet) Access(tag uint64) Outcome {
	if _, ok := s.lru.Get(tag); ok {
		return Outcome{Hit: true}
	}

	if s.lru.Add(tag, struct{}{}) {
		return Outcome{Evicted: true, EvictedTag: s.lastEvicted}
	}

	return Outcome{}
}

func (s *simpleLRUSet) Lookup(tag uint64) bool {
	return s.lru.Contains(tag)
}

func (s *simpleLRUSet) LeastRecent() (uint64, bool) {
	key, _, ok := s.lru.GetOldest()
	if !ok {
		return 0, false
	}

	return key.(uint64), true
}

func (s *simpleLRUSet) Tags() []uint64 {
	keys := s.lru.Keys()

	tags := make([]uint64, len(keys))
	for i, k := range keys {
		tags[i] = k.(uint64)
	}

	return tags
}

func (s *simpleLRUSet) Len() int {
	return s.lru.Len()
}

func (s *simpleLRUSet) Capacity() int {
	return s.capacity
}
