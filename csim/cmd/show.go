package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/sarchlab/csim/datarecording"
	"github.com/sarchlab/csim/sim/hooking"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show <database>",
		Short: "Print a run recorded with --record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("accesses")

			return showRecording(cmd.Context(), args[0], limit, cmd.OutOrStdout())
		},
	}

	showCmd.Flags().Int("accesses", 0, "print the first n recorded accesses")

	return showCmd
}

func showRecording(
	ctx context.Context,
	path string,
	accessLimit int,
	out io.Writer,
) error {
	filename := datarecording.DBFilename(path)
	if _, err := os.Stat(filename); err != nil {
		return err
	}

	reader, err := datarecording.NewReader(filename)
	if err != nil {
		return err
	}
	defer reader.Close()

	tables, err := reader.ListTables(ctx)
	if err != nil {
		return err
	}

	if slices.Contains(tables, datarecording.RunInfoTable) {
		if err := showRunInfo(ctx, reader, out); err != nil {
			return err
		}
	}

	if slices.Contains(tables, hooking.SetStatsTable) {
		if err := showSetStats(ctx, reader, out); err != nil {
			return err
		}
	}

	if slices.Contains(tables, hooking.AccessTable) {
		if err := showAccesses(ctx, reader, accessLimit, out); err != nil {
			return err
		}
	}

	return nil
}

func showRunInfo(
	ctx context.Context,
	reader datarecording.DataReader,
	out io.Writer,
) error {
	reader.MapTable(datarecording.RunInfoTable, datarecording.RunInfo{})

	rows, _, err := reader.Query(ctx, datarecording.RunInfoTable,
		datarecording.QueryParams{OrderBy: "rowid"})
	if err != nil {
		return err
	}

	for _, row := range rows {
		info := row.(*datarecording.RunInfo)
		fmt.Fprintf(out, "%s: %s\n", info.Property, info.Value)
	}

	return nil
}

func showSetStats(
	ctx context.Context,
	reader datarecording.DataReader,
	out io.Writer,
) error {
	reader.MapTable(hooking.SetStatsTable, hooking.SetStats{})

	rows, _, err := reader.Query(ctx, hooking.SetStatsTable,
		datarecording.QueryParams{OrderBy: "SetID"})
	if err != nil {
		return err
	}

	for _, row := range rows {
		s := row.(*hooking.SetStats)
		fmt.Fprintf(out, "set %d: hits:%d misses:%d evictions:%d\n",
			s.SetID, s.Hits, s.Misses, s.Evictions)
	}

	return nil
}

func showAccesses(
	ctx context.Context,
	reader datarecording.DataReader,
	limit int,
	out io.Writer,
) error {
	reader.MapTable(hooking.AccessTable, hooking.AccessEntry{})

	rows, total, err := reader.Query(ctx, hooking.AccessTable,
		datarecording.QueryParams{OrderBy: "rowid", Limit: max(limit, 1)})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "accesses: %d\n", total)

	if limit <= 0 {
		return nil
	}

	for _, row := range rows {
		a := row.(*hooking.AccessEntry)

		result := "miss"
		if a.Hit {
			result = "hit"
		} else if a.Evicted {
			result = "miss eviction " + a.EvictedTag
		}

		fmt.Fprintf(out, "%d %s %s %s set %d tag %s %s\n",
			a.Line, a.Op, a.Kind, a.Address, a.SetID, a.Tag, result)
	}

	return nil
}
