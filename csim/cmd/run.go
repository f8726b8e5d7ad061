package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedisct1/dlog"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/csim/datarecording"
	"github.com/sarchlab/csim/monitoring"
	"github.com/sarchlab/csim/sim/hooking"
	"github.com/sarchlab/csim/sim/simulation"
)

// errNoTrace is reported when no trace file is configured.
var errNoTrace = errors.New("no trace file given, use -t")

// openBrowser is replaced in tests.
var openBrowser = browser.OpenURL

// A run wires a simulator with the observers the options ask for.
type run struct {
	opts   options
	stdout io.Writer

	simulator *simulation.Simulator
	setStats  *hooking.SetStatsTracer

	recorder     datarecording.DataRecorder
	recordPath   string
	runRecorder  *datarecording.RunRecorder
	monitor      *monitoring.Monitor
	accessCloser io.Closer
}

// runSimulation replays the configured trace and prints the report to
// stdout. Nothing is printed and no database is kept if the run fails.
func runSimulation(ctx context.Context, opts options, stdout io.Writer) error {
	if opts.TraceFile == "" {
		return &simulation.ConfigError{Field: "trace", Err: errNoTrace}
	}

	simulator, err := simulation.MakeBuilder().
		WithConfig(opts.simulationConfig()).
		Build()
	if err != nil {
		return err
	}

	r := &run{
		opts:      opts,
		stdout:    stdout,
		simulator: simulator,
	}
	defer r.close()

	if err := r.attachObservers(); err != nil {
		return err
	}

	dlog.Debugf("simulating %d sets of %d lines with %d offset bits",
		opts.simulationConfig().NumSets(), opts.LinesPerSet, opts.OffsetBits)

	counters, err := r.replay(ctx)
	if err != nil {
		r.discardRecording()
		return err
	}

	fmt.Fprintln(stdout, counters.String())

	if opts.VerboseSets {
		r.printSetStats()
	}

	return r.finishRecording(counters)
}

func (r *run) attachObservers() error {
	if r.opts.VerboseSets || r.opts.Record.Enabled || r.opts.Monitor.Enabled {
		r.setStats = hooking.NewSetStatsTracer()
		r.simulator.AcceptHook(r.setStats)
	}

	if r.opts.Verbose {
		r.simulator.AcceptHook(&verboseHook{out: r.stdout})
	}

	if r.opts.AccessLog.File != "" {
		logger, closer, err := newAccessLogger(r.opts.AccessLog, r.stdout)
		if err != nil {
			return &simulation.ConfigError{Field: "access log", Err: err}
		}

		r.accessCloser = closer
		r.simulator.AcceptHook(hooking.NewLogTracer(logger))
	}

	if r.opts.Record.Enabled {
		if err := r.startRecording(); err != nil {
			return err
		}
	}

	if r.opts.Monitor.Enabled {
		r.startMonitor()
	}

	return nil
}

func (r *run) startRecording() error {
	r.recordPath = r.opts.Record.Path
	if r.recordPath == "" {
		r.recordPath = "csim_run_" + xid.New().String()
	}

	recorder, err := datarecording.New(r.recordPath)
	if err != nil {
		return &simulation.ConfigError{Field: "record path", Err: err}
	}

	r.recorder = recorder
	r.runRecorder = datarecording.NewRunRecorder(recorder)
	r.runRecorder.Start()

	config := r.simulator.Config()
	r.runRecorder.Add("Trace", r.opts.TraceFile)
	r.runRecorder.Add("Set Bits", strconv.FormatUint(uint64(config.SetBits), 10))
	r.runRecorder.Add("Lines Per Set", strconv.Itoa(config.LinesPerSet))
	r.runRecorder.Add("Offset Bits", strconv.FormatUint(uint64(config.OffsetBits), 10))
	r.runRecorder.Add("Set Implementation", config.SetImpl)
	r.runRecorder.Add("Workers", strconv.Itoa(config.Workers))

	if r.opts.Record.Accesses {
		r.simulator.AcceptHook(hooking.NewDBTracer(recorder))
	}

	dlog.Noticef("recording to %s", datarecording.DBFilename(r.recordPath))

	return nil
}

func (r *run) startMonitor() {
	r.monitor = monitoring.NewMonitor().WithPortNumber(r.opts.Monitor.Port)
	r.monitor.RegisterSimulator(r.simulator)
	r.monitor.RegisterSetStats(r.setStats)

	url, err := r.monitor.StartServer()
	if err != nil {
		dlog.Warnf("monitoring server not started: %v", err)
		r.monitor = nil

		return
	}

	if r.opts.Monitor.Open {
		if err := openBrowser(url); err != nil {
			dlog.Warnf("cannot open %s: %v", url, err)
		}
	}
}

func (r *run) replay(ctx context.Context) (simulation.Counters, error) {
	f, err := simulation.OpenTrace(r.opts.TraceFile)
	if err != nil {
		return simulation.Counters{}, err
	}
	defer f.Close()

	var input io.Reader = f

	if r.monitor != nil {
		total := uint64(0)
		if st, err := f.Stat(); err == nil {
			total = uint64(st.Size())
		}

		bar := r.monitor.CreateProgressBar(r.opts.TraceFile, total)
		defer r.monitor.CompleteProgressBar(bar)

		input = bar.Reader(f)
	}

	return r.simulator.Run(ctx, input)
}

func (r *run) printSetStats() {
	for _, s := range r.setStats.Stats() {
		fmt.Fprintf(r.stdout, "set %d: hits:%d misses:%d evictions:%d\n",
			s.SetID, s.Hits, s.Misses, s.Evictions)
	}
}

func (r *run) finishRecording(counters simulation.Counters) error {
	if r.recorder == nil {
		return nil
	}

	r.runRecorder.Add("Hits", strconv.FormatUint(counters.Hits, 10))
	r.runRecorder.Add("Misses", strconv.FormatUint(counters.Misses, 10))
	r.runRecorder.Add("Evictions", strconv.FormatUint(counters.Evictions, 10))
	r.runRecorder.End()

	r.setStats.RecordTo(r.recorder)

	err := r.recorder.Close()
	r.recorder = nil

	return err
}

func (r *run) discardRecording() {
	if r.recorder == nil {
		return
	}

	if err := r.recorder.Close(); err != nil {
		dlog.Warnf("closing %s: %v", r.recordPath, err)
	}

	r.recorder = nil

	err := os.Remove(datarecording.DBFilename(r.recordPath))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		dlog.Warnf("removing %s: %v", r.recordPath, err)
	}
}

func (r *run) close() {
	if r.recorder != nil {
		r.discardRecording()
	}

	if r.accessCloser != nil {
		if err := r.accessCloser.Close(); err != nil {
			dlog.Warnf("closing access log: %v", err)
		}
	}

	if r.monitor != nil {
		if err := r.monitor.StopServer(); err != nil {
			dlog.Warnf("stopping monitor: %v", err)
		}
	}
}
