// Package simulation replays a memory trace against a set-associative cache.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sarchlab/csim/mem/cache/tagging"
	"github.com/sarchlab/csim/mem/trace"
	"github.com/sarchlab/csim/sim/hooking"
)

// ErrSetOutOfRange is returned when a set index does not name a set.
var ErrSetOutOfRange = errors.New("set index out of range")

// A Simulator replays traces against one cache. Hooks registered on the
// Simulator are invoked at hooking.HookPosAccess after every elementary
// access. With more than one worker, hooks are invoked concurrently.
type Simulator struct {
	hooking.HookableBase

	config  Config
	decoder tagging.Decoder
	tags    tagging.TagArray

	shardLocks []sync.Mutex
	counters   liveCounters

	runLock sync.Mutex
}

// NewSimulator validates the configuration and creates a Simulator.
func NewSimulator(config Config) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	newSet, err := tagging.SetFactoryByName(config.SetImpl)
	if err != nil {
		return nil, &ConfigError{Field: "set implementation", Err: err}
	}

	s := &Simulator{
		config:     config,
		decoder:    tagging.NewDecoder(config.OffsetBits, config.SetBits),
		tags:       tagging.NewTagArray(config.NumSets(), config.LinesPerSet, newSet),
		shardLocks: make([]sync.Mutex, config.workers()),
	}

	return s, nil
}

func (c Config) workers() int {
	if c.Workers < 1 {
		return 1
	}

	return c.Workers
}

// Config returns the configuration of the simulator.
func (s *Simulator) Config() Config {
	return s.config
}

// Decoder returns the address decoder of the simulated cache.
func (s *Simulator) Decoder() tagging.Decoder {
	return s.decoder
}

// Counters returns the totals accumulated so far by the current or last run.
func (s *Simulator) Counters() Counters {
	return s.counters.snapshot()
}

// SetContents returns the tags resident in a set, from least to most recently
// used. It is safe to call while a run is in progress.
func (s *Simulator) SetContents(setID uint64) ([]uint64, error) {
	if setID >= s.tags.NumSets() {
		return nil, fmt.Errorf("%w: %d, the cache has %d sets",
			ErrSetOutOfRange, setID, s.tags.NumSets())
	}

	lock := s.shardLock(setID)
	lock.Lock()
	defer lock.Unlock()

	return s.tags.GetSet(setID).Tags(), nil
}

// OpenTrace opens a trace file. Failures are reported as *ConfigError.
func OpenTrace(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Field: "trace file", Err: err}
	}

	return f, nil
}

// RunFile replays the trace stored at path.
func (s *Simulator) RunFile(ctx context.Context, path string) (Counters, error) {
	f, err := OpenTrace(path)
	if err != nil {
		return Counters{}, err
	}
	defer f.Close()

	return s.Run(ctx, f)
}

// Run replays every record read from r in order and returns the final
// counters. The cache starts empty. If any line is malformed or reading
// fails, Run returns the error and no counters.
func (s *Simulator) Run(ctx context.Context, r io.Reader) (Counters, error) {
	s.runLock.Lock()
	defer s.runLock.Unlock()

	s.reset()

	reader := trace.NewReader(r,
		trace.WithStrictNewline(s.config.StrictNewline),
		trace.WithMaxLineLength(s.config.MaxLineLength),
	)

	var err error
	if s.config.workers() > 1 {
		err = s.replayParallel(ctx, reader)
	} else {
		err = s.replay(ctx, reader)
	}

	if err != nil {
		s.reset()
		return Counters{}, err
	}

	return s.counters.snapshot(), nil
}

func (s *Simulator) reset() {
	for i := range s.shardLocks {
		s.shardLocks[i].Lock()
	}

	s.tags.Reset()
	s.counters.reset()

	for i := range s.shardLocks {
		s.shardLocks[i].Unlock()
	}
}

func (s *Simulator) replay(ctx context.Context, reader *trace.Reader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		for _, a := range rec.Accesses() {
			setID, tag := s.decoder.Decode(a.Address)
			s.access(job{
				line:   reader.Line(),
				op:     rec.Op,
				access: a,
				setID:  setID,
				tag:    tag,
			})
		}
	}
}

// A job is one decoded elementary access.
type job struct {
	line   int
	op     trace.Op
	access trace.Access
	setID  uint64
	tag    uint64
}

func (s *Simulator) shardOf(setID uint64) int {
	return int(setID % uint64(len(s.shardLocks)))
}

func (s *Simulator) shardLock(setID uint64) *sync.Mutex {
	return &s.shardLocks[s.shardOf(setID)]
}

func (s *Simulator) access(j job) {
	lock := s.shardLock(j.setID)
	lock.Lock()
	outcome := s.tags.Access(j.setID, j.tag)
	lock.Unlock()

	s.counters.count(outcome)

	if s.NumHooks() == 0 {
		return
	}

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    hooking.HookPosAccess,
		Item: hooking.AccessItem{
			Line:       j.line,
			Op:         j.op.String(),
			Kind:       j.access.Kind.String(),
			Address:    j.access.Address,
			SetID:      j.setID,
			Tag:        j.tag,
			Hit:        outcome.Hit,
			Evicted:    outcome.Evicted,
			EvictedTag: outcome.EvictedTag,
		},
	})
}
