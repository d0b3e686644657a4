// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/feed2pdf/internal/history"
	"github.com/pdiddy/feed2pdf/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past runs from the history database",
	Long: `History lists recent runs recorded in the SQLite history database
(--history-db or history_db). Use --run with a run ID to list that run's
conversions, or add --failed to show only the failures.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().String("run", "", "show the conversions of this run ID")
	historyCmd.Flags().Bool("failed", false, "with --run, show only failed conversions")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := viper.GetString(keyHistoryDB)
	if path == "" {
		return fmt.Errorf("history is disabled: set %s or --history-db", keyHistoryDB)
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runID, _ := cmd.Flags().GetString("run")
	failedOnly, _ := cmd.Flags().GetBool("failed")

	return showHistory(cmd.Context(), store, cmd.OutOrStdout(), runID, failedOnly, limit)
}

func showHistory(ctx context.Context, store *history.Store, w io.Writer, runID string, failedOnly bool, limit int) error {
	if runID != "" {
		invs, err := store.Invocations(ctx, runID, failedOnly)
		if err != nil {
			return err
		}
		if len(invs) == 0 {
			fmt.Fprintf(w, "No conversions recorded for run %s.\n", runID)
			return nil
		}
		fmt.Fprintln(w, renderInvocations(invs))
		return nil
	}

	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintln(w, renderRuns(runs))
	fmt.Fprintf(w, "\n%d run(s)\n", len(runs))
	return nil
}

func renderRuns(runs []history.RunRow) string {
	t := newTable([]column{
		left("Run"), left("Started"), right("Took"), left("State"),
		left("Policy"), right("Feeds"), right("Failed"), left("List"),
	})
	for _, r := range runs {
		t.add(
			r.RunID,
			humanize.Time(r.StartedAt),
			elapsed(r.StartedAt, r.FinishedAt),
			string(r.State),
			string(r.FailurePolicy),
			strconv.Itoa(r.Invoked),
			strconv.Itoa(r.Failed),
			r.FeedsFile,
		)
	}
	return t.render()
}

func renderInvocations(invs []types.Invocation) string {
	t := newTable([]column{
		right("Line"), left("Feed"), right("Exit"), right("Took"), left("Status"),
	})
	for _, inv := range invs {
		status := "ok"
		if inv.Failed() {
			status = inv.Error
		}
		t.add(
			strconv.Itoa(inv.Line),
			inv.URL,
			strconv.Itoa(inv.ExitCode),
			inv.Duration.Round(time.Millisecond).String(),
			status,
		)
	}
	return t.render()
}

func elapsed(start, end time.Time) string {
	if start.IsZero() || end.IsZero() {
		return "-"
	}
	return end.Sub(start).Round(time.Second).String()
}
