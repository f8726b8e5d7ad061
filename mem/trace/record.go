// Package trace reads memory access traces in the valgrind lackey format.
//
// Each line holds one record:
//
//	<op> <hex-address>,<decimal-size>
//
// The first character of the operation decides what the record does. Loads
// and stores access the cache once, modifies access it twice (load then
// store), and instruction fetches or unknown operations are ignored.
package trace

// Op is the operation of a trace record.
type Op int

// Known operations.
const (
	OpUnknown Op = iota
	OpLoad
	OpStore
	OpModify
	OpInstruction
)

func (o Op) String() string {
	switch o {
	case OpLoad:
		return "L"
	case OpStore:
		return "S"
	case OpModify:
		return "M"
	case OpInstruction:
		return "I"
	default:
		return "?"
	}
}

func opFromToken(token string) Op {
	switch token[0] {
	case 'L':
		return OpLoad
	case 'S':
		return OpStore
	case 'M':
		return OpModify
	case 'I':
		return OpInstruction
	default:
		return OpUnknown
	}
}

// AccessKind tells whether an elementary access reads or writes.
type AccessKind int

// Kinds of elementary accesses.
const (
	AccessLoad AccessKind = iota
	AccessStore
)

func (k AccessKind) String() string {
	if k == AccessStore {
		return "store"
	}

	return "load"
}

// An Access is one load or one store against the cache.
type Access struct {
	Kind    AccessKind
	Address uint64
}

// A Record is one parsed trace line. Size is parsed but does not affect the
// simulation.
type Record struct {
	Op      Op
	Address uint64
	Size    uint64
}

// Accesses expands the record into the elementary accesses it performs.
func (r Record) Accesses() []Access {
	switch r.Op {
	case OpLoad:
		return []Access{{Kind: AccessLoad, Address: r.Address}}
	case OpStore:
		return []Access{{Kind: AccessStore, Address: r.Address}}
	case OpModify:
		return []Access{
			{Kind: AccessLoad, Address: r.Address},
			{Kind: AccessStore, Address: r.Address},
		}
	default:
		return nil
	}
}
