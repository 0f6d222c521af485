package drm_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"tonight/internal/config"
	"tonight/internal/drm"
	"tonight/internal/invariant"
	"tonight/internal/ledger"
)

func rescuer() *drm.Rescuer {
	return drm.NewRescuer(config.Default().DRM)
}

func TestRescueOrdersForHighStressInWindow(t *testing.T) {
	for _, reason := range []drm.Reason{drm.ReasonCalendarConflict, drm.ReasonLowEnergy, drm.ReasonLateNoAction, drm.ReasonHandleIt} {
		res, err := rescuer().Select(context.Background(), drm.Request{
			Household: "h 1", DecisionEventID: "d1", Reason: reason, Now: at(18, 0),
		})
		if err != nil {
			t.Fatalf("%s: Select failed: %v", reason, err)
		}
		if res.Action == nil || res.Action.DecisionType != ledger.TypeOrder {
			t.Fatalf("%s: expected order rescue, got %+v", reason, res.Action)
		}
		if res.Confidence != 1.0 || res.Exhausted {
			t.Fatalf("%s: unexpected rescue metadata %+v", reason, res)
		}
		if !strings.Contains(res.Action.DeepLinkURL, "household=h+1") || !strings.Contains(res.Action.DeepLinkURL, "ref=d1") {
			t.Fatalf("%s: unexpected deep link %q", reason, res.Action.DeepLinkURL)
		}
	}
}

func TestRescueZeroCookOutsideWindowOrLowStress(t *testing.T) {
	cases := []struct {
		reason drm.Reason
		hour   int
		title  string
	}{
		{drm.ReasonCalendarConflict, 16, "Cheese and cracker plate"},
		{drm.ReasonLowEnergy, 20, "Peanut butter toast"},
		{drm.ReasonTwoRejections, 18, "Cereal and fruit"},
		{drm.ReasonLateNoAction, 21, "Yogurt bowl"},
	}
	for _, tc := range cases {
		res, err := rescuer().Select(context.Background(), drm.Request{
			Household: "h1", DecisionEventID: "d1", Reason: tc.reason, Now: at(tc.hour, 0),
		})
		if err != nil {
			t.Fatalf("%s: Select failed: %v", tc.reason, err)
		}
		if res.Action.DecisionType != ledger.TypeZeroCook || res.Action.Title != tc.title {
			t.Fatalf("%s at %d: expected %q, got %+v", tc.reason, tc.hour, tc.title, res.Action)
		}
		again, _ := rescuer().Select(context.Background(), drm.Request{
			Household: "h1", DecisionEventID: "d1", Reason: tc.reason, Now: at(tc.hour, 0),
		})
		if again.Action.Title != res.Action.Title {
			t.Fatalf("%s: rescue not deterministic", tc.reason)
		}
	}
}

func TestRescueOutputPassesInvariants(t *testing.T) {
	for _, hour := range []int{12, 18} {
		res, err := rescuer().Select(context.Background(), drm.Request{
			Household: "h1", DecisionEventID: "d1", Reason: drm.ReasonLowEnergy, Now: at(hour, 0),
			HashFor: func(key string) string { return "hash-" + key },
		})
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		payload, err := json.Marshal(res.Action)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := invariant.ValidateAction(payload); err != nil {
			t.Fatalf("rescue at %d failed invariants: %v", hour, err)
		}
	}
}

type failingLinker struct{}

func (failingLinker) DeepLink(context.Context, string, string, string) (string, error) {
	return "", errors.New("vendor api down")
}

func TestRescuePropagatesLinkerFailure(t *testing.T) {
	r := rescuer()
	r.Linker = failingLinker{}
	_, err := r.Select(context.Background(), drm.Request{Household: "h1", DecisionEventID: "d1", Reason: drm.ReasonHandleIt, Now: at(18, 0)})
	if !errors.Is(err, ledger.ErrCollaborator) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
}

func TestRescueExhaustedWithoutMoves(t *testing.T) {
	r := rescuer()
	r.Moves = nil
	res, err := r.Select(context.Background(), drm.Request{Household: "h1", DecisionEventID: "d1", Reason: drm.ReasonTwoRejections, Now: at(12, 0)})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !res.Exhausted || res.Action != nil {
		t.Fatalf("expected exhausted rescue, got %+v", res)
	}
}
