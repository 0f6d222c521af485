package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tonight/internal/action"
	"tonight/internal/ledger"
)

type historyRow struct {
	ID        string    `json:"id"`
	DecidedAt time.Time `json:"decidedAt"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent decisions and how they were resolved",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			events, err := store.RecentDecisions(cmd.Context(), ctx.household(), 0)
			if err != nil {
				return err
			}
			rows := historyRows(events, limit)
			if jsonOutput {
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No decisions recorded")
				return nil
			}
			now := time.Now()
			table := make([][]string, 0, len(rows))
			for _, row := range rows {
				table = append(table, []string{
					humanize.RelTime(row.DecidedAt, now, "ago", "from now"),
					row.ID,
					row.Type,
					row.Title,
					row.Status,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"When", "Decision", "Type", "Title", "Status"}, table))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of decisions to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print history as JSON")
	return cmd
}

// historyRows folds the event log into one row per root decision, newest
// first.
func historyRows(events []ledger.DecisionEvent, limit int) []historyRow {
	var rows []historyRow
	for _, ev := range ledger.SortRecentFirst(events) {
		if !ev.IsRoot() {
			continue
		}
		status := ledger.CurrentStatus(ev, events)
		label := string(status.Action)
		if status.Undone {
			label = "undone"
		}
		title := ""
		if decoded, err := action.Decode(ev.Payload); err == nil {
			title = decoded.Title
		}
		rows = append(rows, historyRow{
			ID:        ev.ID,
			DecidedAt: ev.DecidedAt,
			Type:      string(ev.Type),
			Title:     title,
			Status:    label,
		})
		if limit > 0 && len(rows) == limit {
			break
		}
	}
	return rows
}
