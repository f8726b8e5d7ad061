package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sarchlab/csim/sim/simulation"
	"github.com/spf13/pflag"
)

// envPrefix is the prefix of every environment variable csim reads.
const envPrefix = "CSIM_"

type accessLogOptions struct {
	File       string `toml:"file"`
	MaxSize    int    `toml:"max_size"`
	MaxAge     int    `toml:"max_age"`
	MaxBackups int    `toml:"max_backups"`
}

type recordOptions struct {
	Enabled  bool   `toml:"enabled"`
	Path     string `toml:"path"`
	Accesses bool   `toml:"accesses"`
}

type monitorOptions struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
	Open    bool `toml:"open"`
}

// options holds everything a run needs. Values come from the defaults, an
// optional TOML file, CSIM_* environment variables and the command line, in
// increasing order of precedence.
type options struct {
	SetBits       uint   `toml:"set_bits"`
	LinesPerSet   int    `toml:"lines_per_set"`
	OffsetBits    uint   `toml:"offset_bits"`
	TraceFile     string `toml:"trace"`
	SetImpl       string `toml:"set_impl"`
	Workers       int    `toml:"workers"`
	StrictNewline bool   `toml:"strict_newline"`
	MaxLineLength int    `toml:"max_line_length"`

	Verbose     bool   `toml:"verbose"`
	VerboseSets bool   `toml:"verbose_sets"`
	LogLevel    string `toml:"log_level"`
	LogFile     string `toml:"log_file"`

	AccessLog accessLogOptions `toml:"access_log"`
	Record    recordOptions    `toml:"record"`
	Monitor   monitorOptions   `toml:"monitor"`
}

func defaultOptions() options {
	return options{
		SetImpl:  "linked",
		Workers:  1,
		LogLevel: "notice",
		AccessLog: accessLogOptions{
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 1,
		},
	}
}

func (o options) simulationConfig() simulation.Config {
	return simulation.Config{
		SetBits:       o.SetBits,
		LinesPerSet:   o.LinesPerSet,
		OffsetBits:    o.OffsetBits,
		SetImpl:       o.SetImpl,
		Workers:       o.Workers,
		StrictNewline: o.StrictNewline,
		MaxLineLength: o.MaxLineLength,
	}
}

// A binding connects one setting to its flag and environment variable.
type binding struct {
	flag string
	env  string
	set  func(o *options, value string) error
}

func uintSetting(field func(o *options) *uint) func(*options, string) error {
	return func(o *options, value string) error {
		n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 0)
		if err != nil {
			return err
		}

		*field(o) = uint(n)

		return nil
	}
}

func intSetting(field func(o *options) *int) func(*options, string) error {
	return func(o *options, value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return err
		}

		*field(o) = n

		return nil
	}
}

func boolSetting(field func(o *options) *bool) func(*options, string) error {
	return func(o *options, value string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return err
		}

		*field(o) = b

		return nil
	}
}

func stringSetting(field func(o *options) *string) func(*options, string) error {
	return func(o *options, value string) error {
		*field(o) = value
		return nil
	}
}

var bindings = []binding{
	{"set-bits", "SET_BITS", uintSetting(func(o *options) *uint { return &o.SetBits })},
	{"lines-per-set", "LINES_PER_SET", intSetting(func(o *options) *int { return &o.LinesPerSet })},
	{"offset-bits", "OFFSET_BITS", uintSetting(func(o *options) *uint { return &o.OffsetBits })},
	{"trace", "TRACE", stringSetting(func(o *options) *string { return &o.TraceFile })},
	{"set-impl", "SET_IMPL", stringSetting(func(o *options) *string { return &o.SetImpl })},
	{"workers", "WORKERS", intSetting(func(o *options) *int { return &o.Workers })},
	{"strict-newline", "STRICT_NEWLINE", boolSetting(func(o *options) *bool { return &o.StrictNewline })},
	{"max-line-length", "MAX_LINE_LENGTH", intSetting(func(o *options) *int { return &o.MaxLineLength })},
	{"verbose", "VERBOSE", boolSetting(func(o *options) *bool { return &o.Verbose })},
	{"verbose-sets", "VERBOSE_SETS", boolSetting(func(o *options) *bool { return &o.VerboseSets })},
	{"log-level", "LOG_LEVEL", stringSetting(func(o *options) *string { return &o.LogLevel })},
	{"log-file", "LOG_FILE", stringSetting(func(o *options) *string { return &o.LogFile })},
	{"access-log", "ACCESS_LOG", stringSetting(func(o *options) *string { return &o.AccessLog.File })},
	{"access-log-max-size", "ACCESS_LOG_MAX_SIZE", intSetting(func(o *options) *int { return &o.AccessLog.MaxSize })},
	{"record", "RECORD", boolSetting(func(o *options) *bool { return &o.Record.Enabled })},
	{"record-path", "RECORD_PATH", stringSetting(func(o *options) *string { return &o.Record.Path })},
	{"record-accesses", "RECORD_ACCESSES", boolSetting(func(o *options) *bool { return &o.Record.Accesses })},
	{"monitor", "MONITOR", boolSetting(func(o *options) *bool { return &o.Monitor.Enabled })},
	{"monitor-port", "MONITOR_PORT", intSetting(func(o *options) *int { return &o.Monitor.Port })},
	{"monitor-open", "MONITOR_OPEN", boolSetting(func(o *options) *bool { return &o.Monitor.Open })},
}

// registerFlags declares the flags of the root command. The flag defaults are
// only shown in the help text; unset flags do not override other sources.
func registerFlags(flags *pflag.FlagSet) {
	d := defaultOptions()

	flags.UintP("set-bits", "s", d.SetBits, "number of set index bits (the cache has 2^s sets)")
	flags.IntP("lines-per-set", "E", d.LinesPerSet, "number of lines per set")
	flags.UintP("offset-bits", "b", d.OffsetBits, "number of block offset bits")
	flags.StringP("trace", "t", d.TraceFile, "trace file to replay")
	flags.String("set-impl", d.SetImpl, "set implementation, one of linked, simplelru")
	flags.Int("workers", d.Workers, "number of goroutines replaying independent sets")
	flags.Bool("strict-newline", d.StrictNewline, "reject a last trace line without a newline")
	flags.Int("max-line-length", d.MaxLineLength, "reject trace lines longer than this, 0 for no limit")
	flags.BoolP("verbose", "v", d.Verbose, "print the outcome of every access")
	flags.Bool("verbose-sets", d.VerboseSets, "print hits, misses and evictions per set")
	flags.String("log-level", d.LogLevel, "log level: debug, info, notice, warning, error, critical or fatal")
	flags.String("log-file", d.LogFile, "write logs to this file instead of stderr")
	flags.String("access-log", d.AccessLog.File, "write one line per access to this rotating file, - for stdout")
	flags.Int("access-log-max-size", d.AccessLog.MaxSize, "size in megabytes at which the access log rotates")
	flags.Bool("record", d.Record.Enabled, "record the run into an SQLite database")
	flags.String("record-path", d.Record.Path, "database path without extension, a unique name if empty")
	flags.Bool("record-accesses", d.Record.Accesses, "also record every access")
	flags.Bool("monitor", d.Monitor.Enabled, "serve the state of the run over HTTP")
	flags.Int("monitor-port", d.Monitor.Port, "port of the monitoring server, random if 0")
	flags.Bool("monitor-open", d.Monitor.Open, "open the monitoring page in a browser")
	flags.String("config", "", "TOML configuration file")
	flags.String("env-file", ".env", "file of CSIM_* variables to load, if it exists")
}

// resolveOptions merges the defaults, the configuration file, the
// environment and the flags that were set.
func resolveOptions(
	flags *pflag.FlagSet,
	lookupEnv func(string) (string, bool),
) (options, error) {
	opts := defaultOptions()

	configFile, _ := flags.GetString("config")
	if !flags.Changed("config") {
		if v, ok := lookupEnv(envPrefix + "CONFIG"); ok {
			configFile = v
		}
	}

	if configFile != "" {
		if err := loadConfigFile(configFile, &opts); err != nil {
			return options{}, err
		}
	}

	for _, b := range bindings {
		value, ok := lookupEnv(envPrefix + b.env)
		if !ok {
			continue
		}

		if err := b.set(&opts, value); err != nil {
			return options{}, &simulation.ConfigError{
				Field: envPrefix + b.env,
				Err:   err,
			}
		}
	}

	for _, b := range bindings {
		if !flags.Changed(b.flag) {
			continue
		}

		if err := b.set(&opts, flags.Lookup(b.flag).Value.String()); err != nil {
			return options{}, &simulation.ConfigError{
				Field: "--" + b.flag,
				Err:   err,
			}
		}
	}

	return opts, nil
}

func loadConfigFile(path string, opts *options) error {
	md, err := toml.DecodeFile(path, opts)
	if err != nil {
		return &simulation.ConfigError{Field: "config file", Err: err}
	}

	undecoded := md.Undecoded()
	if len(undecoded) > 0 {
		return &simulation.ConfigError{
			Field: "config file",
			Err:   fmt.Errorf("unsupported key [%s]", undecoded[0]),
		}
	}

	return nil
}

// loadEnvFile adds the variables of a dotenv file to the environment. A
// missing file is not an error. Variables that are already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &simulation.ConfigError{Field: "env file", Err: err}
	}

	return nil
}
