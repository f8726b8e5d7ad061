package simulation

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/csim/mem/cache/tagging"
	"github.com/shirou/gopsutil/mem"
)

// setSlotBytes is the size of one entry of the set table.
const setSlotBytes = 16

// ErrStorageOverflow is reported when the set table cannot be allocated.
var ErrStorageOverflow = errors.New("storage for the sets overflows")

// availableMemory reports how many bytes can still be allocated. It is a
// variable so that tests can replace the probe.
var availableMemory = func() (uint64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}

	return v.Available, nil
}

// Config describes the geometry of the simulated cache and how the trace is
// replayed.
type Config struct {
	// SetBits is the number of set-index bits. The cache has 2^SetBits sets.
	SetBits uint

	// LinesPerSet is the associativity.
	LinesPerSet int

	// OffsetBits is the number of block-offset bits.
	OffsetBits uint

	// SetImpl selects the set implementation. Empty picks the default.
	SetImpl string

	// Workers is the number of goroutines that replay accesses. Values
	// below 2 replay sequentially.
	Workers int

	StrictNewline bool
	MaxLineLength int
}

// NumSets returns the number of sets the configuration describes.
func (c Config) NumSets() uint64 {
	return uint64(1) << c.SetBits
}

// Validate checks that the configuration can be simulated. It returns a
// *ConfigError.
func (c Config) Validate() error {
	if c.SetBits < 1 || c.SetBits > 63 {
		return newConfigError("set bits", "must be between 1 and 63, got %d",
			c.SetBits)
	}

	if c.LinesPerSet < 1 {
		return newConfigError("lines per set", "must be positive, got %d",
			c.LinesPerSet)
	}

	if c.OffsetBits > 63 {
		return newConfigError("offset bits", "must be below 64, got %d",
			c.OffsetBits)
	}

	if c.SetBits+c.OffsetBits > 64 {
		return newConfigError("offset bits",
			"%d set bits and %d offset bits exceed a 64-bit address",
			c.SetBits, c.OffsetBits)
	}

	if _, err := tagging.SetFactoryByName(c.SetImpl); err != nil {
		return &ConfigError{Field: "set implementation", Err: err}
	}

	if c.Workers < 0 {
		return newConfigError("workers", "must not be negative, got %d",
			c.Workers)
	}

	if c.MaxLineLength < 0 {
		return newConfigError("max line length",
			"must not be negative, got %d", c.MaxLineLength)
	}

	return c.checkStorage()
}

func (c Config) checkStorage() error {
	numSets := c.NumSets()
	if numSets > math.MaxInt/setSlotBytes {
		return &ConfigError{
			Field: "set bits",
			Err: fmt.Errorf("%w: %d sets of %d bytes",
				ErrStorageOverflow, numSets, setSlotBytes),
		}
	}

	required := numSets * setSlotBytes

	available, err := availableMemory()
	if err != nil {
		// Without a probe the allocation itself is the only check.
		return nil
	}

	if required > available {
		return &ConfigError{
			Field: "set bits",
			Err: fmt.Errorf("%w: %d bytes required, %d bytes available",
				ErrStorageOverflow, required, available),
		}
	}

	return nil
}

// A ConfigError reports a configuration that cannot be simulated or a trace
// source that cannot be opened.
type ConfigError struct {
	Field string
	Err   error
}

func newConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
