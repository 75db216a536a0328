package services

import (
	"sort"

	"github.com/google/uuid"

	types "github.com/coachline/registration-backend/internal/domain"
)

// RequestedIssue names the constraint that disqualified the session
// the caller specifically asked about, so the reply can say "that one
// is full" instead of a generic "no matches".
type RequestedIssue string

const (
	IssueFull     RequestedIssue = "full"
	IssueWrongAge RequestedIssue = "wrong_age"
)

// Relaxation strategy scores. Higher means the alternative is closer
// to what the caller originally asked for.
const (
	scoreAdjacentDay       = 90
	scoreDifferentTime     = 85
	scoreDifferentLocation = 80
	scoreDifferentBracket  = 50
)

const maxAlternatives = 3

// minViableAlternatives is the threshold under which the result also
// recommends offering a waitlist spot.
const minViableAlternatives = 2

type Alternative struct {
	Session *types.Session
	Score   int
	Reason  string
}

type AlternativeResult struct {
	// Requested is the session the caller seems to have asked for
	// that could not be offered, when one can be identified.
	Requested         *types.Session
	RequestedIssue    RequestedIssue
	Alternatives      []Alternative
	RecommendWaitlist bool
}

// FindAlternatives runs when the exact-match filter came back empty
// for a non-flexible request. Each relaxation strategy contributes a
// scored candidate set; none of them short-circuits the others. Hard
// constraints (tenant scope, capacity, age eligibility) are never
// relaxed except by the dedicated age-bracket strategy, which only
// fires when age was the blocking constraint.
func FindAlternatives(sessions []*types.Session, criteria MatchCriteria) AlternativeResult {
	var result AlternativeResult
	result.Requested, result.RequestedIssue = findRequested(sessions, criteria)

	best := map[uuid.UUID]Alternative{}
	consider := func(s *types.Session, score int, reason string) {
		prev, seen := best[s.ID]
		if seen && prev.Score >= score {
			return
		}
		best[s.ID] = Alternative{Session: s, Score: score, Reason: reason}
	}

	for _, s := range sessions {
		if !matchesHard(s, criteria) || !matchesProgram(s, criteria) {
			continue
		}
		sameLocation := result.Requested == nil || s.LocationID == result.Requested.LocationID

		// Same location and time, one day over.
		if sameLocation && matchesTimeOfDay(s, criteria) && dayAdjacent(s, criteria) {
			consider(s, scoreAdjacentDay, "adjacent_day")
		}
		// Same location and day, different start time.
		if sameLocation && matchesDay(s, criteria) && !matchesTimeOfDay(s, criteria) {
			consider(s, scoreDifferentTime, "different_time")
		}
		// Same day and time at a sibling location.
		if result.Requested != nil && !sameLocation && matchesDay(s, criteria) && matchesTimeOfDay(s, criteria) {
			consider(s, scoreDifferentLocation, "different_location")
		}
	}

	// Same program, any schedule, a bracket the child actually fits —
	// only when age was what blocked the request.
	if result.RequestedIssue == IssueWrongAge {
		for _, s := range sessions {
			if !matchesHard(s, criteria) || !matchesProgram(s, criteria) {
				continue
			}
			consider(s, scoreDifferentBracket, "different_age_bracket")
		}
	}

	out := make([]Alternative, 0, len(best))
	for _, alt := range best {
		out = append(out, alt)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Session.SpotsRemaining() > out[j].Session.SpotsRemaining()
	})
	if len(out) > maxAlternatives {
		out = out[:maxAlternatives]
	}

	result.Alternatives = out
	result.RecommendWaitlist = len(out) < minViableAlternatives
	return result
}

// findRequested looks for the session the caller was effectively
// asking about: one that matches every soft axis of the request but
// fails a hard constraint. A capacity failure is reported over an age
// failure when both kinds exist, since "that session is full" is the
// more common and more actionable answer.
func findRequested(sessions []*types.Session, criteria MatchCriteria) (*types.Session, RequestedIssue) {
	var wrongAge *types.Session
	for _, s := range sessions {
		if s.Program.OrganizationID != criteria.OrganizationID {
			continue
		}
		if !matchesDay(s, criteria) || !matchesProgram(s, criteria) || !matchesTimeOfDay(s, criteria) {
			continue
		}
		if !s.Available() {
			return s, IssueFull
		}
		if !s.AgeEligible(criteria.ChildAge) && wrongAge == nil {
			wrongAge = s
		}
	}
	if wrongAge != nil {
		return wrongAge, IssueWrongAge
	}
	return nil, ""
}

func dayAdjacent(s *types.Session, criteria MatchCriteria) bool {
	if criteria.Days.Empty() || criteria.Days.Any {
		return false
	}
	for _, d := range criteria.Days.Days {
		diff := (s.DayOfWeek - d + 7) % 7
		if diff == 1 || diff == 6 {
			return true
		}
	}
	return false
}

// BuildAlternativeRecommendations projects alternatives into the
// display shape with their score and reason attached.
func BuildAlternativeRecommendations(alts []Alternative) []Recommendation {
	out := make([]Recommendation, 0, len(alts))
	for _, alt := range alts {
		rec := BuildRecommendation(alt.Session)
		rec.Score = alt.Score
		rec.Reason = alt.Reason
		out = append(out, rec)
	}
	return out
}
