package registration

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SessionStatusActive    = "active"
	SessionStatusFull      = "full"
	SessionStatusCancelled = "cancelled"
)

// Session is one concrete scheduled offering of a program: a weekly
// slot with a capacity, a coach and an age bracket. The age bracket is
// half-open: MinAge is included, MaxAge is excluded.
type Session struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProgramID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"program_id"`
	LocationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"location_id"`
	CoachID    *uuid.UUID `gorm:"type:uuid;index" json:"coach_id,omitempty"`

	// 0 = Sunday .. 6 = Saturday.
	DayOfWeek int `gorm:"column:day_of_week;not null" json:"day_of_week"`
	// 24-hour "HH:MM".
	StartTime string    `gorm:"column:start_time;not null" json:"start_time"`
	StartDate time.Time `gorm:"column:start_date;not null;index" json:"start_date"`
	EndDate   time.Time `gorm:"column:end_date;not null" json:"end_date"`

	Capacity      int    `gorm:"column:capacity;not null" json:"capacity"`
	EnrolledCount int    `gorm:"column:enrolled_count;not null;default:0" json:"enrolled_count"`
	Status        string `gorm:"column:status;not null;default:'active';index" json:"status"`

	MinAge int `gorm:"column:min_age;not null" json:"min_age"`
	MaxAge int `gorm:"column:max_age;not null" json:"max_age"`

	DurationWeeks int `gorm:"column:duration_weeks;not null;default:0" json:"duration_weeks"`
	PriceCents    int `gorm:"column:price_cents;not null;default:0" json:"price_cents"`

	Program  Program  `gorm:"foreignKey:ProgramID" json:"program"`
	Location Location `gorm:"foreignKey:LocationID" json:"location"`
	Coach    *Coach   `gorm:"foreignKey:CoachID" json:"coach,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Session) TableName() string { return "session" }

func (s *Session) SpotsRemaining() int {
	remaining := s.Capacity - s.EnrolledCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Available means the session can still take an enrollment.
func (s *Session) Available() bool {
	return s.Status == SessionStatusActive && s.EnrolledCount < s.Capacity
}

// HasValidAgeRange rejects malformed bracket data. Sessions that fail
// this are excluded from matching entirely (fail closed).
func (s *Session) HasValidAgeRange() bool {
	return s.MinAge >= 0 && s.MaxAge > s.MinAge
}

// AgeEligible reports whether age falls in the half-open [MinAge, MaxAge).
func (s *Session) AgeEligible(age int) bool {
	if !s.HasValidAgeRange() {
		return false
	}
	return age >= s.MinAge && age < s.MaxAge
}

func (s *Session) CoachName() string {
	if s.Coach == nil {
		return ""
	}
	return s.Coach.Name
}

func (s *Session) CoachRating() float64 {
	if s.Coach == nil {
		return 0
	}
	return s.Coach.Rating
}
