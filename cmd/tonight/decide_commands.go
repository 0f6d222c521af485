package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"tonight/internal/action"
	"tonight/internal/arbiter"
	"tonight/internal/drm"
	"tonight/internal/ledger"
)

type requestFlags struct {
	now              string
	window           string
	energy           string
	calendarConflict bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.now, "now", "", "Request time as RFC 3339 with offset (default: current local time)")
	cmd.Flags().StringVar(&f.window, "window", "", "Time window: early, dinner or late (default: from --now)")
	cmd.Flags().StringVar(&f.energy, "energy", drm.EnergyOK, "Energy level: low, ok or high")
	cmd.Flags().BoolVar(&f.calendarConflict, "calendar-conflict", false, "The evening has a calendar conflict")
}

func (f *requestFlags) request(household string) (arbiter.Request, error) {
	now, err := nowFlag(f.now)
	if err != nil {
		return arbiter.Request{}, err
	}
	return arbiter.Request{
		Household: household,
		Now:       now,
		Signal: drm.Signal{
			TimeWindow:       f.window,
			Energy:           f.energy,
			CalendarConflict: f.calendarConflict,
		},
	}, nil
}

func newDecideCommand(ctx *commandContext) *cobra.Command {
	var flags requestFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Decide tonight's dinner",
		Long: heredoc.Doc(`
			Decide returns exactly one action: a meal to cook, an order to place,
			or a zero-effort fallback. When Dinner Rescue Mode triggers (calendar
			conflict, low energy, repeated rejections, or it is getting late) the
			rescue replaces normal selection.
		`),
		Example: heredoc.Doc(`
			tonight decide
			tonight decide --energy low
			tonight decide --now 2026-03-10T18:30:00-05:00 --json
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(ctx.household())
			if err != nil {
				return err
			}
			arb, err := ctx.arbiter()
			if err != nil {
				return err
			}
			out, err := arb.Decide(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeRawJSON(cmd, out.JSON)
			}
			renderDecision(cmd.OutOrStdout(), out)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the decision response as JSON")
	return cmd
}

func newRescueCommand(ctx *commandContext) *cobra.Command {
	var flags requestFlags
	var reason string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "rescue",
		Short: "Skip selection and get a rescue right now",
		Long: heredoc.Doc(`
			Rescue is the "handle it" button. It always returns one rescue: an
			order from the configured vendor during the ordering window, or a
			canned no-cook move otherwise.
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(ctx.household())
			if err != nil {
				return err
			}
			arb, err := ctx.arbiter()
			if err != nil {
				return err
			}
			out, err := arb.Rescue(cmd.Context(), req, drm.Reason(strings.TrimSpace(reason)))
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeRawJSON(cmd, out.JSON)
			}
			w := cmd.OutOrStdout()
			if out.Response.Exhausted || out.Response.Rescue == nil {
				fmt.Fprintln(w, "No rescue available")
				return nil
			}
			renderAction(w, *out.Response.Rescue)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&reason, "reason", string(drm.ReasonHandleIt), "Why: handle_it or im_done")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the rescue response as JSON")
	return cmd
}

func renderDecision(w io.Writer, out arbiter.Outcome) {
	resp := out.Response
	if resp.DrmRecommended {
		fmt.Fprintf(w, "Dinner Rescue Mode: %s\n", resp.Reason)
	}
	if resp.Decision == nil {
		fmt.Fprintln(w, "No decision; run `tonight rescue` for a rescue")
		return
	}
	renderAction(w, *resp.Decision)
	if out.SafeCore {
		fmt.Fprintln(w, "Picked from the safe-core meals (no inventory on record)")
	}
	if out.Autopilot != nil {
		if out.Autopilot.Verdict.Eligible {
			fmt.Fprintln(w, "Autopilot: approved")
		} else {
			fmt.Fprintf(w, "Autopilot: off (%s)\n", out.Autopilot.Verdict.Reason)
		}
	}
}

func renderAction(w io.Writer, a action.Action) {
	switch a.DecisionType {
	case ledger.TypeCook:
		fmt.Fprintf(w, "Tonight: %s (%d min)\n", a.Title, a.EstMinutes)
	case ledger.TypeOrder:
		fmt.Fprintf(w, "Tonight: %s\n", a.Title)
		fmt.Fprintf(w, "Order: %s\n", a.DeepLinkURL)
	default:
		fmt.Fprintf(w, "Tonight: %s (no cooking)\n", a.Title)
	}
	for i, step := range a.Steps {
		fmt.Fprintf(w, "  %d. %s\n", i+1, step)
	}
	fmt.Fprintf(w, "Decision: %s\n", a.DecisionEventID)
}
