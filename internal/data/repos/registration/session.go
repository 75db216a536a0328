package registration

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/coachline/registration-backend/internal/domain"
	"github.com/coachline/registration-backend/internal/pkg/dbctx"
	"github.com/coachline/registration-backend/internal/pkg/logger"
)

// SessionRepo is the sole read path into persisted session data. It
// scopes by organization (through the owning program) and by start
// date; every other predicate belongs to the matcher so it can be
// tested without a database.
type SessionRepo interface {
	ListCandidates(dbc dbctx.Context, organizationID uuid.UUID, from time.Time) ([]*types.Session, error)
	GetByID(dbc dbctx.Context, sessionID uuid.UUID) (*types.Session, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) ListCandidates(dbc dbctx.Context, organizationID uuid.UUID, from time.Time) ([]*types.Session, error) {
	if organizationID == uuid.Nil {
		return nil, fmt.Errorf("missing organization_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var out []*types.Session
	err := transaction.WithContext(dbc.Ctx).
		Joins("JOIN program ON program.id = session.program_id").
		Where("program.organization_id = ?", organizationID).
		Where("session.start_date >= ?", from).
		Preload("Program").
		Preload("Location").
		Preload("Coach").
		Order("session.start_date ASC, session.start_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, sessionID uuid.UUID) (*types.Session, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var out types.Session
	err := transaction.WithContext(dbc.Ctx).
		Preload("Program").
		Preload("Location").
		Preload("Coach").
		Where("id = ?", sessionID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
