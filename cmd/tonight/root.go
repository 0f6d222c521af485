package main

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var householdFlag string
	var envFlag string

	ctx := newCommandContext(&configFlag, &householdFlag, &envFlag)

	rootCmd := &cobra.Command{
		Use:   "tonight",
		Short: "Decide what's for dinner",
		Long: heredoc.Doc(`
			tonight answers one question with exactly one answer: what is the
			household doing for dinner tonight.

			Each decision is recorded in a local ledger. Approving, rejecting or
			undoing a decision teaches the scorer the household's taste.
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.loadEnv(); err != nil {
				return err
			}
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&householdFlag, "household", "", "Household key (defaults to the configured household)")
	rootCmd.PersistentFlags().StringVar(&envFlag, "env-file", "", "Load environment variables from this file (default .env when present)")

	rootCmd.AddCommand(newDecideCommand(ctx))
	rootCmd.AddCommand(newRescueCommand(ctx))
	for _, cmd := range newFeedbackCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newExpireCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newMealsCommand(ctx))
	rootCmd.AddCommand(newInventoryCommand(ctx))
	rootCmd.AddCommand(newTasteCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
