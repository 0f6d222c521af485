package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tonight/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that tonight's directories and stores are healthy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var ledgerCheck preflight.SchemaReporter
			var catalogCheck preflight.MealCounter
			if store, err := ctx.openLedger(); err == nil {
				ledgerCheck = store
			}
			if store, err := ctx.openCatalog(); err == nil {
				catalogCheck = store
			}

			out := cmd.OutOrStdout()
			colorize := colorOutput(out)
			for _, line := range doctorHeader(ctx.household(), colorize) {
				fmt.Fprintln(out, line)
			}
			failed := 0
			for _, result := range preflight.RunAll(cmd.Context(), cfg, ledgerCheck, catalogCheck) {
				state := checkPassed
				if !result.Passed {
					state = checkFailed
					failed++
				}
				fmt.Fprintln(out, doctorLine(result.Name, state, result.Detail, colorize))
			}
			fmt.Fprintln(out, doctorLine("Ledger file", checkInfo, cfg.LedgerPath(), colorize))
			if failed > 0 {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}
}
