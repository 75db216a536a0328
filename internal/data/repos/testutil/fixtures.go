package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/coachline/registration-backend/internal/domain"
)

func SeedOrganization(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Organization {
	tb.Helper()
	org := &types.Organization{
		ID:   uuid.New(),
		Name: name,
		Slug: name,
	}
	if err := tx.WithContext(ctx).Create(org).Error; err != nil {
		tb.Fatalf("seed organization: %v", err)
	}
	return org
}

func SeedLocation(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, name string) *types.Location {
	tb.Helper()
	loc := &types.Location{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Address:        "123 Main St",
	}
	if err := tx.WithContext(ctx).Create(loc).Error; err != nil {
		tb.Fatalf("seed location: %v", err)
	}
	return loc
}

func SeedCoach(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, name string, rating float64) *types.Coach {
	tb.Helper()
	coach := &types.Coach{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Rating:         rating,
	}
	if err := tx.WithContext(ctx).Create(coach).Error; err != nil {
		tb.Fatalf("seed coach: %v", err)
	}
	return coach
}

func SeedProgram(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, name string) *types.Program {
	tb.Helper()
	p := &types.Program{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Sport:          "soccer",
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed program: %v", err)
	}
	return p
}

// SessionSpec carries the fields individual tests care about; the rest
// default to an open Wednesday-morning slot starting next week.
type SessionSpec struct {
	DayOfWeek     int
	StartTime     string
	StartDate     time.Time
	Capacity      int
	EnrolledCount int
	Status        string
	MinAge        int
	MaxAge        int
	CoachID       *uuid.UUID
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, programID, locationID uuid.UUID, spec SessionSpec) *types.Session {
	tb.Helper()
	if spec.StartTime == "" {
		spec.StartTime = "10:00"
	}
	if spec.StartDate.IsZero() {
		spec.StartDate = time.Now().UTC().AddDate(0, 0, 7)
	}
	if spec.Capacity == 0 {
		spec.Capacity = 12
	}
	if spec.Status == "" {
		spec.Status = "active"
	}
	if spec.MaxAge == 0 {
		spec.MinAge = 4
		spec.MaxAge = 10
	}
	s := &types.Session{
		ID:            uuid.New(),
		ProgramID:     programID,
		LocationID:    locationID,
		CoachID:       spec.CoachID,
		DayOfWeek:     spec.DayOfWeek,
		StartTime:     spec.StartTime,
		StartDate:     spec.StartDate,
		EndDate:       spec.StartDate.AddDate(0, 0, 7*8),
		Capacity:      spec.Capacity,
		EnrolledCount: spec.EnrolledCount,
		Status:        spec.Status,
		MinAge:        spec.MinAge,
		MaxAge:        spec.MaxAge,
		DurationWeeks: 8,
		PriceCents:    12000,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}
