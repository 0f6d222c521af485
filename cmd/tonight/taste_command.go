package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tonight/internal/ledger"
)

func newTasteCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taste",
		Short: "Inspect and rebuild learned taste",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "recompute",
		Short: "Rebuild the per-meal taste cache from the signal log",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			scores, err := ledger.RecomputeTaste(cmd.Context(), store, ctx.household())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(scores) == 0 {
				fmt.Fprintln(out, "No taste signals recorded")
				return nil
			}
			rows := make([][]string, 0, len(scores))
			for _, score := range scores {
				rows = append(rows, []string{
					score.MealID,
					strconv.FormatFloat(score.Score, 'f', 2, 64),
					strconv.Itoa(score.Approvals),
					strconv.Itoa(score.Rejections),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Meal", "Score", "Approvals", "Rejections"},
				rows,
				"Score", "Approvals", "Rejections",
			))
			return nil
		},
	})
	return cmd
}
