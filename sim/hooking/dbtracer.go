package hooking

import (
	"strconv"
	"sync"

	"github.com/sarchlab/csim/datarecording"
)

// AccessTable is the table that a DBTracer writes to.
const AccessTable = "accesses"

// AccessEntry is the row stored for each access. Addresses and tags are
// stored as hex strings because SQLite integers are signed.
type AccessEntry struct {
	Line       int
	Op         string
	Kind       string
	Address    string
	SetID      uint64
	Tag        string
	Hit        bool
	Evicted    bool
	EvictedTag string
}

// A DBTracer is a hook that records every cache access into a data recorder.
type DBTracer struct {
	lock     sync.Mutex
	recorder datarecording.DataRecorder
}

// NewDBTracer creates a DBTracer and the table it writes to.
func NewDBTracer(recorder datarecording.DataRecorder) *DBTracer {
	recorder.CreateTable(AccessTable, AccessEntry{})

	return &DBTracer{recorder: recorder}
}

// Func records the access if ctx is an access hook.
func (t *DBTracer) Func(ctx HookCtx) {
	if ctx.Pos != HookPosAccess {
		return
	}

	item, ok := ctx.Item.(AccessItem)
	if !ok {
		return
	}

	entry := AccessEntry{
		Line:    item.Line,
		Op:      item.Op,
		Kind:    item.Kind,
		Address: hex(item.Address),
		SetID:   item.SetID,
		Tag:     hex(item.Tag),
		Hit:     item.Hit,
		Evicted: item.Evicted,
	}

	if item.Evicted {
		entry.EvictedTag = hex(item.EvictedTag)
	}

	t.lock.Lock()
	t.recorder.InsertData(AccessTable, entry)
	t.lock.Unlock()
}

func hex(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}
