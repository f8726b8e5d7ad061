package hooking

import (
	"log"
)

// A LogTracer is a hook that writes one line per cache access.
type LogTracer struct {
	logger *log.Logger
}

// NewLogTracer creates a LogTracer that writes through logger.
func NewLogTracer(logger *log.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

// Func logs the access if ctx is an access hook.
func (t *LogTracer) Func(ctx HookCtx) {
	if ctx.Pos != HookPosAccess {
		return
	}

	item, ok := ctx.Item.(AccessItem)
	if !ok {
		return
	}

	t.logger.Printf("%d, %s, %s, 0x%x, %d, 0x%x, %s\n",
		item.Line,
		item.Op,
		item.Kind,
		item.Address,
		item.SetID,
		item.Tag,
		item.Result(),
	)
}
