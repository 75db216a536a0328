package conversation

// State is the conversation phase persisted with each conversation.
// Normal flow is strictly forward; Error is reachable from anywhere.
type State string

const (
	StateGreeting               State = "greeting"
	StateCollectingChildInfo    State = "collecting_child_info"
	StateCollectingPreferences  State = "collecting_preferences"
	StateShowingRecommendations State = "showing_recommendations"
	StateConfirmingSelection    State = "confirming_selection"
	StateCollectingPayment      State = "collecting_payment"
	StateConfirmed              State = "confirmed"
	StateError                  State = "error"
)

var stateOrder = map[State]int{
	StateGreeting:               0,
	StateCollectingChildInfo:    1,
	StateCollectingPreferences:  2,
	StateShowingRecommendations: 3,
	StateConfirmingSelection:    4,
	StateCollectingPayment:      5,
	StateConfirmed:              6,
}

func (s State) Valid() bool {
	if s == StateError {
		return true
	}
	_, ok := stateOrder[s]
	return ok
}

// Order returns the position of s in the forward flow, or -1 for Error
// and unknown states.
func (s State) Order() int {
	idx, ok := stateOrder[s]
	if !ok {
		return -1
	}
	return idx
}

// Progress maps a state to the percentage shown by the widget's
// progress bar. Any monotonically increasing mapping works; these
// values match the steps the UI renders.
func (s State) Progress() int {
	switch s {
	case StateGreeting:
		return 10
	case StateCollectingChildInfo:
		return 25
	case StateCollectingPreferences:
		return 45
	case StateShowingRecommendations:
		return 65
	case StateConfirmingSelection:
		return 80
	case StateCollectingPayment:
		return 90
	case StateConfirmed:
		return 100
	default:
		return 0
	}
}

func ParseState(raw string) (State, bool) {
	s := State(raw)
	if !s.Valid() {
		return "", false
	}
	return s, true
}
