package registration

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/coachline/registration-backend/internal/domain"
	"github.com/coachline/registration-backend/internal/pkg/dbctx"
	"github.com/coachline/registration-backend/internal/pkg/logger"
)

type OrganizationRepo interface {
	GetByID(dbc dbctx.Context, organizationID uuid.UUID) (*types.Organization, error)
	GetBySlug(dbc dbctx.Context, slug string) (*types.Organization, error)
}

type organizationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return &organizationRepo{db: db, log: baseLog.With("repo", "OrganizationRepo")}
}

func (r *organizationRepo) GetByID(dbc dbctx.Context, organizationID uuid.UUID) (*types.Organization, error) {
	if organizationID == uuid.Nil {
		return nil, fmt.Errorf("missing organization_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Organization
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", organizationID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *organizationRepo) GetBySlug(dbc dbctx.Context, slug string) (*types.Organization, error) {
	if slug == "" {
		return nil, fmt.Errorf("missing slug")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Organization
	err := transaction.WithContext(dbc.Ctx).Where("slug = ?", slug).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
