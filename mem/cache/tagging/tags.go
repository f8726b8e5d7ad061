package tagging

// A TagArray is the directory of a set-associative cache. It holds a fixed
// number of sets, each with the same number of ways.
type TagArray interface {
	NumSets() uint64
	NumWays() int

	// Access routes tag to the set setID and accesses it there.
	Access(setID, tag uint64) Outcome

	// Lookup reports whether tag is resident in set setID.
	Lookup(setID, tag uint64) bool

	// GetSet returns the set with the given index.
	GetSet(setID uint64) Set

	// Reset drops every resident block.
	Reset()
}

// NewTagArray creates a tag array with numSets sets of numWays ways each.
// Sets are built with newSet the first time they are touched.
func NewTagArray(
	numSets uint64,
	numWays int,
	newSet SetFactory,
) TagArray {
	mustHavePositiveCapacity(numWays)

	if numSets == 0 {
		panic("a tag array needs at least one set")
	}

	t := &tagArrayImpl{
		numSets: numSets,
		numWays: numWays,
		newSet:  newSet,
	}

	t.Reset()

	return t
}

type tagArrayImpl struct {
	numSets uint64
	numWays int
	newSet  SetFactory
	sets    []Set
}

func (t *tagArrayImpl) NumSets() uint64 {
	return t.numSets
}

func (t *tagArrayImpl) NumWays() int {
	return t.numWays
}

func (t *tagArrayImpl) Access(setID, tag uint64) Outcome {
	return t.GetSet(setID).Access(tag)
}

func (t *tagArrayImpl) Lookup(setID, tag uint64) bool {
	set := t.sets[setID]
	if set == nil {
		return false
	}

	return set.Lookup(tag)
}

// GetSet returns the set that setID refers to. Different goroutines may
// touch different sets concurrently.
func (t *tagArrayImpl) GetSet(setID uint64) Set {
	set := t.sets[setID]
	if set == nil {
		set = t.newSet(t.numWays)
		t.sets[setID] = set
	}

	return set
}

func (t *tagArrayImpl) Reset() {
	t.sets = make([]Set, t.numSets)
}
