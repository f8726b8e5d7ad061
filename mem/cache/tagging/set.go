package tagging

import (
	"fmt"
	"sort"
)

// Outcome is the result of accessing a set with a tag.
type Outcome struct {
	Hit        bool
	Evicted    bool
	EvictedTag uint64
}

// A Set is a list of resident tags ordered from the least recently used to
// the most recently used. A set never holds more than Capacity tags and never
// holds the same tag twice.
type Set interface {
	// Access looks up tag. On a hit the tag becomes the most recently used.
	// On a miss the tag is inserted as the most recently used, evicting the
	// least recently used tag first if the set is full.
	Access(tag uint64) Outcome

	// Lookup reports whether tag is resident without changing the order.
	Lookup(tag uint64) bool

	// LeastRecent returns the next tag to be evicted.
	LeastRecent() (uint64, bool)

	// Tags returns the resident tags from least to most recently used.
	Tags() []uint64

	Len() int
	Capacity() int
}

// A SetFactory creates an empty set that can hold capacity tags.
type SetFactory func(capacity int) Set

// Names of the available set implementations.
const (
	SetImplLinked    = "linked"
	SetImplSimpleLRU = "simplelru"
)

var setFactories = map[string]SetFactory{
	SetImplLinked: func(capacity int) Set {
		return NewSet(capacity, NewLRUVictimFinder())
	},
	SetImplSimpleLRU: NewSimpleLRUSet,
}

// SetFactoryByName returns the factory registered under name. An empty name
// selects the linked implementation.
func SetFactoryByName(name string) (SetFactory, error) {
	if name == "" {
		name = SetImplLinked
	}

	f, ok := setFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown set implementation %q, choose from %v",
			name, SetImplNames())
	}

	return f, nil
}

// SetImplNames lists the registered set implementations.
func SetImplNames() []string {
	names := make([]string, 0, len(setFactories))
	for name := range setFactories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func mustHavePositiveCapacity(capacity int) {
	if capacity < 1 {
		panic(fmt.Sprintf("set capacity must be positive, got %d", capacity))
	}
}
