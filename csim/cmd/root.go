// Package cmd provides the command-line interface of csim.
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/jedisct1/dlog"
	"github.com/sarchlab/csim/mem/trace"
	"github.com/sarchlab/csim/sim/simulation"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "csim -s <s> -E <E> -b <b> -t <tracefile>",
		Short: "csim replays a memory trace against a set-associative LRU cache.",
		Long: `csim replays a memory trace against a set-associative cache ` +
			`with LRU replacement and reports the number of hits, misses ` +
			`and evictions. Settings can also come from CSIM_* environment ` +
			`variables, a .env file or a TOML file given with --config.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			if err := loadEnvFile(envFile); err != nil {
				return err
			}

			opts, err := resolveOptions(cmd.Flags(), os.LookupEnv)
			if err != nil {
				return err
			}

			if err := setupLogging(opts); err != nil {
				return &simulation.ConfigError{Field: "log level", Err: err}
			}

			return runSimulation(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &simulation.ConfigError{Field: "flags", Err: err}
	})

	registerFlags(rootCmd.Flags())
	rootCmd.AddCommand(newShowCmd())

	return rootCmd
}

// describeError names the class of a failure the way users of cache
// simulators expect it.
func describeError(err error) string {
	var parseErr *trace.ParseError
	if errors.As(err, &parseErr) {
		return "Bad input"
	}

	var configErr *simulation.ConfigError
	if errors.As(err, &configErr) {
		if configErr.Field == "trace file" {
			return "Bad file"
		}

		return "Bad arguments"
	}

	if errors.Is(err, context.Canceled) {
		return "Interrupted"
	}

	return "Error"
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		dlog.Errorf("%s: %v", describeError(err), err)
		stop()
		atexit.Exit(1)
	}
}
