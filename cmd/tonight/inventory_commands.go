package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newInventoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Manage the household pantry estimates",
	}
	cmd.AddCommand(newInventoryImportCommand(ctx))
	cmd.AddCommand(newInventoryListCommand(ctx))
	return cmd
}

func newInventoryImportCommand(ctx *commandContext) *cobra.Command {
	var observed string
	cmd := &cobra.Command{
		Use:   "import <file.toml|file.yaml>",
		Short: "Import pantry observations for the household",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			observedAt, err := nowFlag(observed)
			if err != nil {
				return err
			}
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			n, err := store.ImportInventory(cmd.Context(), ctx.household(), args[0], observedAt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d pantry items for %s\n", n, ctx.household())
			return nil
		},
	}
	cmd.Flags().StringVar(&observed, "observed", "", "Observation time for items without last_seen (default: now)")
	return cmd
}

func newInventoryListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pantry estimates",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			items, err := store.Inventory(cmd.Context(), ctx.household())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No pantry items recorded")
				return nil
			}
			now := time.Now()
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				qty := "-"
				if item.RemainingQty != nil {
					qty = humanize.FtoaWithDigits(*item.RemainingQty, 2)
				}
				rows = append(rows, []string{
					item.Name,
					strconv.FormatFloat(item.Confidence, 'f', 2, 64),
					qty,
					humanize.RelTime(item.LastSeenAt, now, "ago", "from now"),
					item.Source,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Item", "Confidence", "Remaining", "Seen", "Source"},
				rows,
				"Confidence", "Remaining",
			))
			return nil
		},
	}
}
