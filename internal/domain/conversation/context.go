package conversation

import (
	"sort"
)

const (
	// ChildAge bounds accepted from extraction. Values outside this
	// range are rejected for the turn, never stored.
	MinChildAge = 2
	MaxChildAge = 18
)

type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
	TimeOfDayAny       TimeOfDay = "any"
)

func (t TimeOfDay) Valid() bool {
	switch t {
	case TimeOfDayMorning, TimeOfDayAfternoon, TimeOfDayEvening, TimeOfDayAny:
		return true
	}
	return false
}

// DaySet is a set of weekdays (0 = Sunday .. 6 = Saturday) with a
// first-class "any day" variant. "Any" is an explicit preference the
// caller stated, distinct from a DaySet that was never set; relying on
// consumers to recognize the literal full set invites
// misinterpretation when partial-but-large sets occur.
type DaySet struct {
	Any  bool  `json:"any,omitempty"`
	Days []int `json:"days,omitempty"`
}

// NewDaySet normalizes raw day numbers: out-of-range values are
// dropped, duplicates collapsed, and the full week folds into Any.
func NewDaySet(days []int) DaySet {
	seen := map[int]bool{}
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Ints(out)
	if len(out) == 7 {
		return DaySet{Any: true}
	}
	return DaySet{Days: out}
}

func AnyDay() DaySet { return DaySet{Any: true} }

func (d DaySet) Empty() bool { return !d.Any && len(d.Days) == 0 }

func (d DaySet) Contains(day int) bool {
	if d.Any {
		return day >= 0 && day <= 6
	}
	for _, v := range d.Days {
		if v == day {
			return true
		}
	}
	return false
}

// Context is the accumulated known-facts record for one registration
// conversation. It is serialized to the conversation row's jsonb
// column after every turn. Optional fields are pointers; nil means the
// fact has never been learned, which the merge in services must never
// confuse with an explicit value.
type Context struct {
	ChildName          *string    `json:"child_name,omitempty"`
	ChildAge           *int       `json:"child_age,omitempty"`
	PreferredDays      *DaySet    `json:"preferred_days,omitempty"`
	PreferredTime      *string    `json:"preferred_time,omitempty"`
	PreferredTimeOfDay *TimeOfDay `json:"preferred_time_of_day,omitempty"`
	PreferredProgram   *string    `json:"preferred_program,omitempty"`
}

func (c Context) HasChildInfo() bool {
	return c.ChildName != nil && *c.ChildName != "" && c.ChildAge != nil
}

// HasSchedulePreference reports whether at least one schedule axis is
// known, which is the minimum needed to run a meaningful match.
func (c Context) HasSchedulePreference() bool {
	if c.PreferredDays != nil && !c.PreferredDays.Empty() {
		return true
	}
	if c.PreferredTimeOfDay != nil {
		return true
	}
	if c.PreferredTime != nil && *c.PreferredTime != "" {
		return true
	}
	return false
}

// Flexible reports whether the caller explicitly asked for everything:
// any day and no narrowing time or program preference. There is
// nothing to broaden for a flexible request, so the alternative search
// is skipped when it matches nothing.
func (c Context) Flexible() bool {
	anyDays := c.PreferredDays != nil && c.PreferredDays.Any
	anyTime := c.PreferredTimeOfDay == nil || *c.PreferredTimeOfDay == TimeOfDayAny
	noProgram := c.PreferredProgram == nil || *c.PreferredProgram == ""
	return anyDays && anyTime && noProgram
}
