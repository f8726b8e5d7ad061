package simulation

// Builder can be used to build a Simulator.
type Builder struct {
	config Config
}

// MakeBuilder creates a new builder with a direct-mapped cache of two sets
// and 16-byte blocks.
func MakeBuilder() Builder {
	return Builder{
		config: Config{
			SetBits:     1,
			LinesPerSet: 1,
			OffsetBits:  4,
		},
	}
}

// WithSetBits sets the number of set-index bits.
func (b Builder) WithSetBits(n uint) Builder {
	b.config.SetBits = n
	return b
}

// WithLinesPerSet sets the associativity.
func (b Builder) WithLinesPerSet(n int) Builder {
	b.config.LinesPerSet = n
	return b
}

// WithOffsetBits sets the number of block-offset bits.
func (b Builder) WithOffsetBits(n uint) Builder {
	b.config.OffsetBits = n
	return b
}

// WithSetImpl selects the set implementation by name.
func (b Builder) WithSetImpl(name string) Builder {
	b.config.SetImpl = name
	return b
}

// WithWorkers sets the number of goroutines that replay accesses.
func (b Builder) WithWorkers(n int) Builder {
	b.config.Workers = n
	return b
}

// WithStrictNewline rejects a last trace line without a newline.
func (b Builder) WithStrictNewline() Builder {
	b.config.StrictNewline = true
	return b
}

// WithMaxLineLength rejects trace lines longer than n bytes.
func (b Builder) WithMaxLineLength(n int) Builder {
	b.config.MaxLineLength = n
	return b
}

// WithConfig replaces the whole configuration.
func (b Builder) WithConfig(c Config) Builder {
	b.config = c
	return b
}

// Config returns the configuration built so far.
func (b Builder) Config() Config {
	return b.config
}

// Build validates the configuration and creates the Simulator.
func (b Builder) Build() (*Simulator, error) {
	return NewSimulator(b.config)
}
