package services

import (
	"errors"
	"fmt"
	"strings"

	conv "github.com/coachline/registration-backend/internal/domain/conversation"
)

// ErrInvalidChildAge rejects the whole turn's merge: the stored
// context comes back unchanged and the caller answers with a
// corrective prompt instead of running the state machine.
var ErrInvalidChildAge = errors.New("child age outside accepted range")

// ReconcileContext merges newly extracted facts into the known
// context. It is pure: the input context is passed by value and the
// merged copy is returned. A nil/absent extracted field never touches
// the stored value, so facts learned in earlier turns survive turns
// that do not mention them.
func ReconcileContext(base conv.Context, facts ExtractedFacts) (conv.Context, error) {
	if facts.ChildAge != nil {
		if *facts.ChildAge < conv.MinChildAge || *facts.ChildAge > conv.MaxChildAge {
			return base, fmt.Errorf("%w: %d", ErrInvalidChildAge, *facts.ChildAge)
		}
	}

	out := base

	if facts.ChildName != nil {
		if name := strings.TrimSpace(*facts.ChildName); name != "" {
			out.ChildName = &name
		}
	}
	if facts.ChildAge != nil {
		age := *facts.ChildAge
		out.ChildAge = &age
	}
	if len(facts.PreferredDays) > 0 {
		days := conv.NewDaySet(facts.PreferredDays)
		if !days.Empty() {
			out.PreferredDays = &days
		}
	}
	if facts.PreferredTime != nil {
		if t := strings.TrimSpace(*facts.PreferredTime); validClockTime(t) {
			out.PreferredTime = &t
		}
	}
	if facts.PreferredTimeOfDay != nil {
		tod := conv.TimeOfDay(strings.ToLower(strings.TrimSpace(*facts.PreferredTimeOfDay)))
		// An explicit "any" is a fact in its own right, distinct
		// from never having asked.
		if tod.Valid() {
			out.PreferredTimeOfDay = &tod
		}
	}
	if facts.PreferredProgram != nil {
		if p := strings.TrimSpace(*facts.PreferredProgram); p != "" {
			out.PreferredProgram = &p
		}
	}

	return out, nil
}

func validClockTime(t string) bool {
	_, err := parseClockHour(t)
	return err == nil
}
