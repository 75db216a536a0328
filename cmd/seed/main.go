// Seeds a local database with a demo organization, programs and
// sessions so the chat widget has something to match against.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/coachline/registration-backend/internal/data/db"
	types "github.com/coachline/registration-backend/internal/domain"
	"github.com/coachline/registration-backend/internal/pkg/envutil"
	"github.com/coachline/registration-backend/internal/pkg/logger"
)

func main() {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	gdb := postgresService.DB()

	org := &types.Organization{ID: uuid.New(), Name: "Riverside Youth Sports", Slug: "riverside"}
	if err := gdb.Create(org).Error; err != nil {
		log.Error("seed organization", "error", err)
		os.Exit(1)
	}

	north := &types.Location{ID: uuid.New(), OrganizationID: org.ID, Name: "North Field", Address: "200 River Rd"}
	gym := &types.Location{ID: uuid.New(), OrganizationID: org.ID, Name: "Community Gym", Address: "15 Oak St"}
	for _, loc := range []*types.Location{north, gym} {
		if err := gdb.Create(loc).Error; err != nil {
			log.Error("seed location", "error", err)
			os.Exit(1)
		}
	}

	casey := &types.Coach{ID: uuid.New(), OrganizationID: org.ID, Name: "Coach Casey", Rating: 4.8}
	jordan := &types.Coach{ID: uuid.New(), OrganizationID: org.ID, Name: "Coach Jordan", Rating: 4.5}
	for _, coach := range []*types.Coach{casey, jordan} {
		if err := gdb.Create(coach).Error; err != nil {
			log.Error("seed coach", "error", err)
			os.Exit(1)
		}
	}

	soccer := &types.Program{ID: uuid.New(), OrganizationID: org.ID, Name: "Junior Soccer", Sport: "soccer"}
	basketball := &types.Program{ID: uuid.New(), OrganizationID: org.ID, Name: "Mini Hoops Basketball", Sport: "basketball"}
	for _, p := range []*types.Program{soccer, basketball} {
		if err := gdb.Create(p).Error; err != nil {
			log.Error("seed program", "error", err)
			os.Exit(1)
		}
	}

	nextWeek := time.Now().UTC().AddDate(0, 0, 7)
	sessions := []*types.Session{
		{ID: uuid.New(), ProgramID: soccer.ID, LocationID: north.ID, CoachID: &casey.ID,
			DayOfWeek: 3, StartTime: "10:00", StartDate: nextWeek, EndDate: nextWeek.AddDate(0, 0, 56),
			Capacity: 14, EnrolledCount: 6, Status: "active", MinAge: 4, MaxAge: 10,
			DurationWeeks: 8, PriceCents: 14900},
		{ID: uuid.New(), ProgramID: soccer.ID, LocationID: north.ID, CoachID: &jordan.ID,
			DayOfWeek: 6, StartTime: "09:00", StartDate: nextWeek, EndDate: nextWeek.AddDate(0, 0, 56),
			Capacity: 14, EnrolledCount: 14, Status: "active", MinAge: 4, MaxAge: 10,
			DurationWeeks: 8, PriceCents: 14900},
		{ID: uuid.New(), ProgramID: basketball.ID, LocationID: gym.ID, CoachID: &jordan.ID,
			DayOfWeek: 2, StartTime: "17:30", StartDate: nextWeek, EndDate: nextWeek.AddDate(0, 0, 42),
			Capacity: 10, EnrolledCount: 3, Status: "active", MinAge: 6, MaxAge: 12,
			DurationWeeks: 6, PriceCents: 12900},
	}
	for _, s := range sessions {
		if err := gdb.Create(s).Error; err != nil {
			log.Error("seed session", "error", err)
			os.Exit(1)
		}
	}

	log.Info("Seed complete", "organization", org.Slug, "sessions", len(sessions))
}
