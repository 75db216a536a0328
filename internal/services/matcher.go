package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	types "github.com/coachline/registration-backend/internal/domain"
	conv "github.com/coachline/registration-backend/internal/domain/conversation"
)

// Time-of-day buckets over a session's start hour. A superseded
// variant of these rules used 19:00 as the afternoon boundary; 17:00
// is the authoritative cutoff and this constant is the only place to
// change it.
const (
	morningEndHour   = 12
	afternoonEndHour = 17
)

// maxRecommendations caps how many sessions one turn presents.
const maxRecommendations = 3

var dayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

func DayName(day int) string {
	if day < 0 || day > 6 {
		return ""
	}
	return dayNames[day]
}

// MatchCriteria is the per-turn filter input derived from the
// conversation context. It is recomputed every turn and never
// persisted.
type MatchCriteria struct {
	OrganizationID uuid.UUID
	ChildAge       int
	Days           conv.DaySet
	TimeOfDay      conv.TimeOfDay
	ProgramKeyword string
}

// BuildCriteria derives criteria from context. ok is false when the
// context cannot support a match yet (age is required).
func BuildCriteria(organizationID uuid.UUID, c conv.Context) (MatchCriteria, bool) {
	if c.ChildAge == nil || organizationID == uuid.Nil {
		return MatchCriteria{}, false
	}
	mc := MatchCriteria{
		OrganizationID: organizationID,
		ChildAge:       *c.ChildAge,
		TimeOfDay:      conv.TimeOfDayAny,
	}
	if c.PreferredDays != nil {
		mc.Days = *c.PreferredDays
	}
	if c.PreferredTimeOfDay != nil {
		mc.TimeOfDay = *c.PreferredTimeOfDay
	} else if c.PreferredTime != nil {
		if tod, err := timeOfDayOf(*c.PreferredTime); err == nil {
			mc.TimeOfDay = tod
		}
	}
	if c.PreferredProgram != nil {
		mc.ProgramKeyword = strings.TrimSpace(*c.PreferredProgram)
	}
	return mc, true
}

func parseClockHour(hhmm string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(hhmm), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad time %q", hhmm)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("bad hour in %q", hhmm)
	}
	if m, err := strconv.Atoi(parts[1]); err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", hhmm)
	}
	return hour, nil
}

func timeOfDayOf(hhmm string) (conv.TimeOfDay, error) {
	hour, err := parseClockHour(hhmm)
	if err != nil {
		return "", err
	}
	switch {
	case hour < morningEndHour:
		return conv.TimeOfDayMorning, nil
	case hour < afternoonEndHour:
		return conv.TimeOfDayAfternoon, nil
	default:
		return conv.TimeOfDayEvening, nil
	}
}

// matchesHard applies the constraints that are never relaxed:
// availability, tenant isolation and the half-open age bracket. The
// backing store is multi-tenant, so the organization check stays in
// application logic even though queries are already scoped.
func matchesHard(s *types.Session, criteria MatchCriteria) bool {
	if s == nil || !s.Available() {
		return false
	}
	if s.Program.OrganizationID != criteria.OrganizationID {
		return false
	}
	// Malformed bracket data excludes the session; AgeEligible fails
	// closed on it.
	return s.AgeEligible(criteria.ChildAge)
}

func matchesDay(s *types.Session, criteria MatchCriteria) bool {
	if criteria.Days.Empty() {
		return true
	}
	return criteria.Days.Contains(s.DayOfWeek)
}

func matchesProgram(s *types.Session, criteria MatchCriteria) bool {
	if criteria.ProgramKeyword == "" {
		return true
	}
	return strings.Contains(
		strings.ToLower(s.Program.Name),
		strings.ToLower(criteria.ProgramKeyword),
	)
}

func matchesTimeOfDay(s *types.Session, criteria MatchCriteria) bool {
	if criteria.TimeOfDay == "" || criteria.TimeOfDay == conv.TimeOfDayAny {
		return true
	}
	tod, err := timeOfDayOf(s.StartTime)
	if err != nil {
		// Unparseable start time: exclude rather than guess.
		return false
	}
	return tod == criteria.TimeOfDay
}

// FilterSessions returns the sessions matching every criterion,
// ordered by spots remaining (desc) then coach rating (desc) then
// source order, truncated to maxRecommendations. Pure and
// deterministic.
func FilterSessions(sessions []*types.Session, criteria MatchCriteria) []*types.Session {
	out := make([]*types.Session, 0, len(sessions))
	for _, s := range sessions {
		if !matchesHard(s, criteria) {
			continue
		}
		if !matchesDay(s, criteria) || !matchesProgram(s, criteria) || !matchesTimeOfDay(s, criteria) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SpotsRemaining() != out[j].SpotsRemaining() {
			return out[i].SpotsRemaining() > out[j].SpotsRemaining()
		}
		return out[i].CoachRating() > out[j].CoachRating()
	})
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

// Recommendation is the per-turn display projection of a session. It
// is rebuilt every turn and never persisted.
type Recommendation struct {
	SessionID       uuid.UUID `json:"session_id"`
	ProgramName     string    `json:"program_name"`
	DayName         string    `json:"day_name"`
	StartTime       string    `json:"start_time"`
	FormattedTime   string    `json:"formatted_time"`
	LocationName    string    `json:"location_name"`
	LocationAddress string    `json:"location_address"`
	CoachName       string    `json:"coach_name,omitempty"`
	CoachRating     float64   `json:"coach_rating,omitempty"`
	SpotsRemaining  int       `json:"spots_remaining"`
	AgeRange        string    `json:"age_range"`
	DurationWeeks   int       `json:"duration_weeks"`
	PriceCents      int       `json:"price_cents"`

	// Set on alternatives only.
	Score  int    `json:"score,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func BuildRecommendation(s *types.Session) Recommendation {
	return Recommendation{
		SessionID:       s.ID,
		ProgramName:     s.Program.Name,
		DayName:         DayName(s.DayOfWeek),
		StartTime:       s.StartTime,
		FormattedTime:   formatClockTime(s.StartTime),
		LocationName:    s.Location.Name,
		LocationAddress: s.Location.Address,
		CoachName:       s.CoachName(),
		CoachRating:     s.CoachRating(),
		SpotsRemaining:  s.SpotsRemaining(),
		AgeRange:        fmt.Sprintf("%d-%d", s.MinAge, s.MaxAge-1),
		DurationWeeks:   s.DurationWeeks,
		PriceCents:      s.PriceCents,
	}
}

func BuildRecommendations(sessions []*types.Session) []Recommendation {
	out := make([]Recommendation, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, BuildRecommendation(s))
	}
	return out
}

// formatClockTime renders "14:30" as "2:30 PM" for display.
func formatClockTime(hhmm string) string {
	hour, err := parseClockHour(hhmm)
	if err != nil {
		return hhmm
	}
	minute := strings.SplitN(hhmm, ":", 2)[1]
	suffix := "AM"
	display := hour
	switch {
	case hour == 0:
		display = 12
	case hour == 12:
		suffix = "PM"
	case hour > 12:
		display = hour - 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%s %s", display, minute, suffix)
}
