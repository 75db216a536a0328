package services

import (
	"testing"

	conv "github.com/coachline/registration-backend/internal/domain/conversation"
	"github.com/coachline/registration-backend/internal/pkg/pointers"
)

func ctxWith(name string, age int, days []int) conv.Context {
	var c conv.Context
	if name != "" {
		c.ChildName = &name
	}
	if age > 0 {
		c.ChildAge = &age
	}
	if len(days) > 0 {
		ds := conv.NewDaySet(days)
		c.PreferredDays = &ds
	}
	return c
}

func TestComputeNextStateFollowsKnownFacts(t *testing.T) {
	tests := []struct {
		name    string
		current conv.State
		ctx     conv.Context
		want    conv.State
	}{
		{"nothing known", conv.StateGreeting, conv.Context{}, conv.StateCollectingChildInfo},
		{"name only", conv.StateCollectingChildInfo, ctxWith("Emma", 0, nil), conv.StateCollectingChildInfo},
		{"name and age", conv.StateCollectingChildInfo, ctxWith("Emma", 7, nil), conv.StateCollectingPreferences},
		{"full context", conv.StateCollectingPreferences, ctxWith("Emma", 7, []int{3}), conv.StateShowingRecommendations},
		{"everything in one message", conv.StateGreeting, ctxWith("Emma", 7, []int{3}), conv.StateShowingRecommendations},
	}
	for _, tc := range tests {
		if got := ComputeNextState(tc.current, tc.ctx); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestComputeNextStateNeverLeavesSelectionPhases(t *testing.T) {
	full := ctxWith("Emma", 7, []int{3})
	for _, state := range []conv.State{
		conv.StateConfirmingSelection,
		conv.StateCollectingPayment,
		conv.StateConfirmed,
		conv.StateError,
	} {
		if got := ComputeNextState(state, full); got != state {
			t.Fatalf("%s: free text moved state to %s", state, got)
		}
	}
}

func TestResolveNextStateIgnoresBadHints(t *testing.T) {
	// Age is known but schedule is not; a hint that skips ahead must
	// not be honored.
	c := ctxWith("Emma", 7, nil)
	next, mismatch := ResolveNextState(conv.StateCollectingChildInfo, string(conv.StateShowingRecommendations), c)
	if next != conv.StateCollectingPreferences {
		t.Fatalf("hint was honored: got %s", next)
	}
	if !mismatch {
		t.Fatalf("override not reported")
	}

	// Unknown state names are a mismatch too.
	next, mismatch = ResolveNextState(conv.StateCollectingChildInfo, "collecting_vibes", c)
	if next != conv.StateCollectingPreferences || !mismatch {
		t.Fatalf("unparseable hint: got %s, mismatch=%v", next, mismatch)
	}

	// An agreeing hint is not a mismatch.
	next, mismatch = ResolveNextState(conv.StateCollectingChildInfo, string(conv.StateCollectingPreferences), c)
	if next != conv.StateCollectingPreferences || mismatch {
		t.Fatalf("agreeing hint: got %s, mismatch=%v", next, mismatch)
	}

	// No hint at all.
	next, mismatch = ResolveNextState(conv.StateCollectingChildInfo, "", c)
	if next != conv.StateCollectingPreferences || mismatch {
		t.Fatalf("empty hint: got %s, mismatch=%v", next, mismatch)
	}
}

func TestApplyEventTransitions(t *testing.T) {
	tests := []struct {
		current conv.State
		event   string
		want    conv.State
		wantErr bool
	}{
		{conv.StateShowingRecommendations, EventSelectSession, conv.StateConfirmingSelection, false},
		{conv.StateConfirmingSelection, EventSelectSession, conv.StateConfirmingSelection, false},
		{conv.StateCollectingChildInfo, EventSelectSession, conv.StateCollectingChildInfo, true},
		{conv.StateConfirmingSelection, EventConfirmSelection, conv.StateCollectingPayment, false},
		{conv.StateShowingRecommendations, EventConfirmSelection, conv.StateShowingRecommendations, true},
		{conv.StateCollectingPayment, EventPaymentCompleted, conv.StateConfirmed, false},
		{conv.StateConfirmingSelection, EventPaymentCompleted, conv.StateConfirmingSelection, true},
		{conv.StateCollectingPayment, EventGoBack, conv.StateConfirmingSelection, false},
		{conv.StateConfirmingSelection, EventGoBack, conv.StateShowingRecommendations, false},
		{conv.StateShowingRecommendations, EventGoBack, conv.StateCollectingPreferences, false},
		{conv.StateCollectingChildInfo, EventGoBack, conv.StateCollectingChildInfo, false},
		{conv.StateConfirmed, "celebrate", conv.StateConfirmed, true},
	}
	for _, tc := range tests {
		got, err := ApplyEvent(tc.current, tc.event)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s + %s: err=%v, wantErr=%v", tc.current, tc.event, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("%s + %s: got %s, want %s", tc.current, tc.event, got, tc.want)
		}
	}
}

func TestProgressAdvancesMonotonically(t *testing.T) {
	order := []conv.State{
		conv.StateGreeting,
		conv.StateCollectingChildInfo,
		conv.StateCollectingPreferences,
		conv.StateShowingRecommendations,
		conv.StateConfirmingSelection,
		conv.StateCollectingPayment,
		conv.StateConfirmed,
	}
	prev := -1
	for _, state := range order {
		p := state.Progress()
		if p <= prev {
			t.Fatalf("%s: progress %d not past %d", state, p, prev)
		}
		if p < 0 || p > 100 {
			t.Fatalf("%s: progress %d out of range", state, p)
		}
		prev = p
	}
	if conv.StateConfirmed.Progress() != 100 {
		t.Fatalf("confirmed should be 100%%, got %d", conv.StateConfirmed.Progress())
	}
}

func TestPromptForUsesChildName(t *testing.T) {
	c := conv.Context{ChildName: pointers.String("Emma")}
	msg := promptFor(conv.StateCollectingPreferences, c)
	if msg == "" || msg == promptFor(conv.StateCollectingPreferences, conv.Context{}) {
		t.Fatalf("expected a personalized preferences prompt, got %q", msg)
	}
}
