package services

import (
	"fmt"

	conv "github.com/coachline/registration-backend/internal/domain/conversation"
)

// Turn events are UI-originated transitions: they come from buttons in
// the widget, not from free text, so they bypass extraction entirely.
const (
	EventSelectSession    = "select_session"
	EventConfirmSelection = "confirm_selection"
	EventPaymentCompleted = "payment_completed"
	EventGoBack           = "go_back"
)

// ComputeNextState recomputes the conversation state from the merged
// context. Facts are never erased by reconciliation, so the computed
// state can only move forward along the collection phases; the
// selection/payment phases only move on explicit events.
func ComputeNextState(current conv.State, c conv.Context) conv.State {
	switch current {
	case conv.StateConfirmingSelection,
		conv.StateCollectingPayment,
		conv.StateConfirmed,
		conv.StateError:
		return current
	}
	if !c.HasChildInfo() {
		return conv.StateCollectingChildInfo
	}
	if !c.HasSchedulePreference() {
		return conv.StateCollectingPreferences
	}
	return conv.StateShowingRecommendations
}

// ResolveNextState validates the extractor's suggested state against
// the hard preconditions and returns the state actually used. The
// suggestion is never authoritative: when it disagrees with what the
// merged context supports, the recomputed state wins. mismatch is true
// when a usable suggestion was overridden, so callers can log it.
func ResolveNextState(current conv.State, suggested string, c conv.Context) (next conv.State, mismatch bool) {
	computed := ComputeNextState(current, c)
	if suggested == "" {
		return computed, false
	}
	hint, ok := conv.ParseState(suggested)
	if !ok {
		return computed, true
	}
	return computed, hint != computed
}

// ApplyEvent advances the selection/payment phases. Backward
// navigation is only ever explicit.
func ApplyEvent(current conv.State, event string) (conv.State, error) {
	switch event {
	case EventSelectSession:
		if current != conv.StateShowingRecommendations && current != conv.StateConfirmingSelection {
			return current, fmt.Errorf("cannot select a session from state %q", current)
		}
		return conv.StateConfirmingSelection, nil
	case EventConfirmSelection:
		if current != conv.StateConfirmingSelection {
			return current, fmt.Errorf("cannot confirm from state %q", current)
		}
		return conv.StateCollectingPayment, nil
	case EventPaymentCompleted:
		if current != conv.StateCollectingPayment {
			return current, fmt.Errorf("cannot complete payment from state %q", current)
		}
		return conv.StateConfirmed, nil
	case EventGoBack:
		return stepBack(current), nil
	default:
		return current, fmt.Errorf("unknown event %q", event)
	}
}

func stepBack(current conv.State) conv.State {
	switch current {
	case conv.StateCollectingPayment:
		return conv.StateConfirmingSelection
	case conv.StateConfirmingSelection:
		return conv.StateShowingRecommendations
	case conv.StateShowingRecommendations:
		return conv.StateCollectingPreferences
	case conv.StateCollectingPreferences:
		return conv.StateCollectingChildInfo
	default:
		return current
	}
}

// QuickRepliesFor returns the tap-to-answer chips the widget renders
// for a state.
func QuickRepliesFor(state conv.State, c conv.Context) []string {
	switch state {
	case conv.StateCollectingChildInfo:
		return nil
	case conv.StateCollectingPreferences:
		return []string{"Weekday mornings", "Weekday afternoons", "Weekends", "Any day works"}
	case conv.StateShowingRecommendations:
		return []string{"Show me more options", "These don't work"}
	case conv.StateConfirmingSelection:
		return []string{"Confirm", "Go back"}
	default:
		return nil
	}
}

// promptFor is the deterministic fallback message when the extractor
// did not supply one (event turns, corrective turns, degraded turns).
func promptFor(state conv.State, c conv.Context) string {
	name := ""
	if c.ChildName != nil {
		name = *c.ChildName
	}
	switch state {
	case conv.StateGreeting, conv.StateCollectingChildInfo:
		return "Hi! I can help you find the right program. What's your child's name and age?"
	case conv.StateCollectingPreferences:
		if name != "" {
			return fmt.Sprintf("Great! What days or times usually work best for %s?", name)
		}
		return "Great! What days or times usually work best for you?"
	case conv.StateShowingRecommendations:
		return "Here are the sessions that fit best:"
	case conv.StateConfirmingSelection:
		return "Nice choice! Want me to lock in that spot?"
	case conv.StateCollectingPayment:
		return "You're almost done — let's get the registration paid for."
	case conv.StateConfirmed:
		return "All set! You'll get a confirmation email shortly. See you on the field!"
	default:
		return "Sorry, something went wrong on our end. You can also finish signing up with the regular form."
	}
}

// correctiveAgePrompt keeps the refusal warm and specific.
func correctiveAgePrompt() string {
	return fmt.Sprintf(
		"Our programs are for kids ages %d to %d. Could you double-check your child's age?",
		conv.MinChildAge, conv.MaxChildAge,
	)
}
