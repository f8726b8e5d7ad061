package tagging

const noSlot = -1

type node struct {
	tag        uint64
	prev, next int
}

// linkedSet keeps its lines in an arena of nodes linked by slot index. Slots
// of evicted lines go to a free list and get reused by later insertions.
type linkedSet struct {
	capacity     int
	victimFinder VictimFinder

	nodes []node
	free  []int
	slots map[uint64]int

	// head is the least recently used slot, tail the most recently used.
	head, tail int
}

// NewSet creates an empty set that holds up to capacity tags. The victim
// finder picks the tag to drop when a miss hits a full set.
func NewSet(capacity int, victimFinder VictimFinder) Set {
	mustHavePositiveCapacity(capacity)

	hint := capacity
	if hint > 16 {
		hint = 16
	}

	return &linkedSet{
		capacity:     capacity,
		victimFinder: victimFinder,
		nodes:        make([]node, 0, hint),
		slots:        make(map[uint64]int, hint),
		head:         noSlot,
		tail:         noSlot,
	}
}

func (s *linkedSet) Access(tag uint64) Outcome {
	if slot, ok := s.slots[tag]; ok {
		s.unlink(slot)
		s.linkAtTail(slot)

		return Outcome{Hit: true}
	}

	outcome := Outcome{}

	if len(s.slots) >= s.capacity {
		victim, ok := s.victimFinder.FindVictim(s)
		if !ok {
			panic("no victim found in a full set")
		}

		s.evict(victim)

		outcome.Evicted = true
		outcome.EvictedTag = victim
	}

	s.insert(tag)

	return outcome
}

func (s *linkedSet) Lookup(tag uint64) bool {
	_, ok := s.slots[tag]
	return ok
}

func (s *linkedSet) LeastRecent() (uint64, bool) {
	if s.head == noSlot {
		return 0, false
	}

	return s.nodes[s.head].tag, true
}

func (s *linkedSet) Tags() []uint64 {
	tags := make([]uint64, 0, len(s.slots))
	for slot := s.head; slot != noSlot; slot = s.nodes[slot].next {
		tags = append(tags, s.nodes[slot].tag)
	}

	return tags
}

func (s *linkedSet) Len() int {
	return len(s.slots)
}

func (s *linkedSet) Capacity() int {
	return s.capacity
}

func (s *linkedSet) insert(tag uint64) {
	var slot int

	if n := len(s.free); n > 0 {
		slot = s.free[n-1]
		s.free = s.free[:n-1]
		s.nodes[slot] = node{tag: tag}
	} else {
		slot = len(s.nodes)
		s.nodes = append(s.nodes, node{tag: tag})
	}

	s.slots[tag] = slot
	s.linkAtTail(slot)
}

func (s *linkedSet) evict(tag uint64) {
	slot, ok := s.slots[tag]
	if !ok {
		panic("evicting a tag that is not in the set")
	}

	s.unlink(slot)
	delete(s.slots, tag)
	s.free = append(s.free, slot)
}

func (s *linkedSet) unlink(slot int) {
	n := &s.nodes[slot]

	if n.prev == noSlot {
		s.head = n.next
	} else {
		s.nodes[n.prev].next = n.next
	}

	if n.next == noSlot {
		s.tail = n.prev
	} else {
		s.nodes[n.next].prev = n.prev
	}

	n.prev = noSlot
	n.next = noSlot
}

func (s *linkedSet) linkAtTail(slot int) {
	n := &s.nodes[slot]
	n.prev = s.tail
	n.next = noSlot

	if s.tail == noSlot {
		s.head = slot
	} else {
		s.nodes[s.tail].next = slot
	}

	s.tail = slot
}
