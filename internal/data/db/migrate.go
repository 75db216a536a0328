package db

import (
	"gorm.io/gorm"

	types "github.com/coachline/registration-backend/internal/domain"
)

func AutoMigrateAll(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&types.Organization{},
		&types.Location{},
		&types.Coach{},
		&types.Program{},
		&types.Session{},
		&types.Conversation{},
	)
}

func (s *PostgresService) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}
