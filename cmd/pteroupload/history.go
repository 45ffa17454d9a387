package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"pteroupload/internal/history"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	historyDB    string
	historyLimit int
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded deployment runs",
	Long: `List recent runs recorded with --history-db, newest first.

With --run, list the individual panel operations of one run instead.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyDB, "db", getEnvOrDefault("PTERO_HISTORY_DB", "./pteroupload.db"), "Path to SQLite database")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show the operations of this run ID")
}

func runHistory(cmd *cobra.Command, args []string) error {
	hist, err := history.NewHistory(historyDB)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer hist.Close()

	out := cmd.OutOrStdout()

	if historyRun != "" {
		transfers, err := hist.RunTransfers(cmd.Context(), historyRun)
		if err != nil {
			return err
		}
		if len(transfers) == 0 {
			fmt.Fprintf(out, "%s\n", text.FgYellow.Sprintf("No operations recorded for run %s", historyRun))
			return nil
		}
		renderTransfers(out, transfers)
		return nil
	}

	runs, err := hist.RecentRuns(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "%s\n", text.FgYellow.Sprint("No runs recorded"))
		return nil
	}
	renderRuns(out, runs)
	return nil
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	return t
}

func renderRuns(out io.Writer, runs []history.RunRecord) {
	t := newTable(out)
	t.AppendHeader(table.Row{"RUN", "STARTED", "STATUS", "SERVERS", "UPLOADS", "SIZE", "DURATION", "ERROR"})

	for _, r := range runs {
		duration := "-"
		if r.DurationSeconds != nil {
			duration = (time.Duration(*r.DurationSeconds * float64(time.Second))).Round(time.Millisecond).String()
		}
		errMsg := ""
		if r.ErrorMessage != nil {
			errMsg = truncate(*r.ErrorMessage, 60)
		}

		t.AppendRow(table.Row{
			r.ID,
			humanize.Time(r.StartedAt),
			statusColor(r.Status).Sprint(r.Status),
			strings.Join(r.Servers, ", "),
			r.Uploads,
			humanize.Bytes(uint64(r.BytesUploaded)),
			duration,
			errMsg,
		})
	}

	t.Render()
}

func renderTransfers(out io.Writer, transfers []history.TransferRecord) {
	t := newTable(out)
	t.AppendHeader(table.Row{"#", "SERVER", "OP", "LOCAL", "REMOTE", "SIZE", "STATUS", "ERROR"})

	for i, tr := range transfers {
		size := ""
		if tr.Bytes > 0 {
			size = humanize.Bytes(uint64(tr.Bytes))
		}
		errMsg := ""
		if tr.ErrorMessage != nil {
			errMsg = truncate(*tr.ErrorMessage, 60)
		}

		t.AppendRow(table.Row{
			i + 1,
			tr.ServerID,
			tr.Op,
			tr.LocalPath,
			tr.RemotePath,
			size,
			statusColor(tr.Status).Sprint(tr.Status),
			errMsg,
		})
	}

	t.Render()
}

func statusColor(status string) text.Colors {
	switch status {
	case history.StatusSuccess:
		return text.Colors{text.FgGreen}
	case history.StatusFailed:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgYellow}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
