package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newMealsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meals",
		Short: "Manage the meal catalog",
	}
	cmd.AddCommand(newMealsImportCommand(ctx))
	cmd.AddCommand(newMealsListCommand(ctx))
	return cmd
}

func newMealsImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.toml|file.yaml>",
		Short: "Import or update meals from a TOML or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			n, err := store.ImportMeals(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d meals\n", n)
			return nil
		},
	}
}

func newMealsListCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog meals",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			list := store.ActiveMeals
			if all {
				list = store.AllMeals
			}
			meals, err := list(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(meals) == 0 {
				fmt.Fprintln(out, "No meals in the catalog")
				return nil
			}
			rows := make([][]string, 0, len(meals))
			for _, meal := range meals {
				rows = append(rows, []string{
					meal.CanonicalKey,
					meal.Name,
					strconv.Itoa(meal.EstMinutes),
					strconv.Itoa(len(meal.Ingredients)),
					strings.Join(meal.Tags, ", "),
					yesNo(meal.Active),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Key", "Name", "Minutes", "Ingredients", "Tags", "Active"},
				rows,
				"Minutes", "Ingredients",
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include inactive meals")
	return cmd
}
