package tagging

// A VictimFinder decides which block should be evicted from a full set.
type VictimFinder interface {
	FindVictim(set Set) (tag uint64, ok bool)
}

// LRUVictimFinder evicts the least recently used block.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the least recently used tag in a set. It returns false
// only if the set is empty.
func (e *LRUVictimFinder) FindVictim(set Set) (uint64, bool) {
	return set.LeastRecent()
}
