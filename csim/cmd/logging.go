package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/jedisct1/dlog"
	"github.com/sarchlab/csim/sim/hooking"
	"gopkg.in/natefinch/lumberjack.v2"
)

func parseLogLevel(name string) (dlog.Severity, error) {
	if n, err := strconv.Atoi(name); err == nil {
		if n < int(dlog.SeverityDebug) || n >= int(dlog.SeverityLast) {
			return 0, fmt.Errorf("log level %d out of range", n)
		}

		return dlog.Severity(n), nil
	}

	for i, severity := range dlog.SeverityName {
		if strings.EqualFold(severity, name) {
			return dlog.Severity(i), nil
		}
	}

	return 0, fmt.Errorf("unknown log level %q", name)
}

func setupLogging(opts options) error {
	level, err := parseLogLevel(opts.LogLevel)
	if err != nil {
		return err
	}

	dlog.SetLogLevel(level)

	if opts.LogFile != "" {
		dlog.UseLogFile(opts.LogFile)
	}

	return nil
}

// newAccessLogger opens the per-access log. The returned closer is nil when
// nothing needs to be closed.
func newAccessLogger(
	o accessLogOptions,
	stdout io.Writer,
) (*log.Logger, io.Closer, error) {
	if o.File == "-" {
		return log.New(stdout, "", 0), nil, nil
	}

	if st, err := os.Stat(o.File); err == nil && st.IsDir() {
		return nil, nil, fmt.Errorf("[%v] is a directory", o.File)
	}

	writer := &lumberjack.Logger{
		LocalTime:  true,
		MaxSize:    o.MaxSize,
		MaxAge:     o.MaxAge,
		MaxBackups: o.MaxBackups,
		Filename:   o.File,
		Compress:   true,
	}

	return log.New(writer, "", 0), writer, nil
}

// verboseHook prints the outcome of every access the way the -v flag of
// cache simulators traditionally does.
type verboseHook struct {
	lock sync.Mutex
	out  io.Writer
}

func (h *verboseHook) Func(ctx hooking.HookCtx) {
	if ctx.Pos != hooking.HookPosAccess {
		return
	}

	item, ok := ctx.Item.(hooking.AccessItem)
	if !ok {
		return
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	fmt.Fprintln(h.out, item.String())
}
