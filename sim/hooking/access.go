package hooking

import "fmt"

// HookPosAccess is triggered after every elementary cache access.
var HookPosAccess = &HookPos{Name: "HookPosAccess"}

// AccessItem describes one elementary access and its outcome. It is the Item
// of hooks triggered at HookPosAccess.
type AccessItem struct {
	// Line is the 1-based trace line that produced the access.
	Line    int
	Op      string
	Kind    string
	Address uint64
	SetID   uint64
	Tag     uint64

	Hit        bool
	Evicted    bool
	EvictedTag uint64
}

// Result summarizes the outcome as "hit", "miss" or "miss eviction".
func (a AccessItem) Result() string {
	switch {
	case a.Hit:
		return "hit"
	case a.Evicted:
		return "miss eviction"
	default:
		return "miss"
	}
}

func (a AccessItem) String() string {
	s := fmt.Sprintf("%s %x %s", a.Op, a.Address, a.Result())
	if a.Evicted {
		s += fmt.Sprintf(" (tag %#x)", a.EvictedTag)
	}

	return s
}
