package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tonight/internal/feedback"
)

type resolveFunc func(*feedback.Service, context.Context, string, time.Time) (feedback.Result, error)

func newFeedbackCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newResolveCommand(ctx, "approve", "Approve a decision", "Approved", (*feedback.Service).Approve),
		newResolveCommand(ctx, "reject", "Reject a decision", "Rejected", (*feedback.Service).Reject),
		newResolveCommand(ctx, "undo", "Undo an approved decision", "Undid", (*feedback.Service).Undo),
	}
}

func newResolveCommand(ctx *commandContext, use, short, verb string, resolve resolveFunc) *cobra.Command {
	var nowValue string
	cmd := &cobra.Command{
		Use:   use + " <decision-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := nowFlag(nowValue)
			if err != nil {
				return err
			}
			service, err := ctx.feedbackService()
			if err != nil {
				return err
			}
			res, err := resolve(service, cmd.Context(), args[0], now)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Recorded {
				fmt.Fprintf(out, "Decision %s was already recorded as %s\n", args[0], res.Action)
				return nil
			}
			fmt.Fprintf(out, "%s decision %s\n", verb, args[0])
			if len(res.Consumed) > 0 {
				fmt.Fprintf(out, "Used %d pantry items\n", len(res.Consumed))
			}
			if res.ConsumeErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: pantry not updated: %v\n", res.ConsumeErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&nowValue, "now", "", "Resolution time as RFC 3339 with offset (default: current local time)")
	return cmd
}

func newExpireCommand(ctx *commandContext) *cobra.Command {
	var nowValue string
	cmd := &cobra.Command{
		Use:   "expire [decision-id]",
		Short: "Expire one pending decision, or every stale one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := nowFlag(nowValue)
			if err != nil {
				return err
			}
			service, err := ctx.feedbackService()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				res, err := service.Expire(cmd.Context(), args[0], now)
				if err != nil {
					return err
				}
				if res.Recorded {
					fmt.Fprintf(out, "Expired decision %s\n", args[0])
				} else {
					fmt.Fprintf(out, "Decision %s was already expired\n", args[0])
				}
				return nil
			}
			results, err := service.ExpireStale(cmd.Context(), ctx.household(), now)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Expired %d stale decisions\n", len(results))
			return nil
		},
	}
	cmd.Flags().StringVar(&nowValue, "now", "", "Reference time as RFC 3339 with offset (default: current local time)")
	return cmd
}
