package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/coachline/registration-backend/internal/clients/redis"
	"github.com/coachline/registration-backend/internal/data/repos"
	types "github.com/coachline/registration-backend/internal/domain"
	"github.com/coachline/registration-backend/internal/pkg/dbctx"
	"github.com/coachline/registration-backend/internal/pkg/logger"
)

// InventoryService is the read path the matcher consumes: candidate
// sessions for an organization, already scoped to start today or
// later. All domain filtering happens in the matcher.
type InventoryService interface {
	ListCandidateSessions(ctx context.Context, organizationID uuid.UUID) ([]*types.Session, error)
}

type inventoryService struct {
	log   *logger.Logger
	repo  repos.SessionRepo
	cache redis.InventoryCache
	group singleflight.Group
	now   func() time.Time
}

// NewInventoryService wires the session repo with an optional redis
// cache. cache may be nil (local dev without redis).
func NewInventoryService(baseLog *logger.Logger, repo repos.SessionRepo, cache redis.InventoryCache) InventoryService {
	return &inventoryService{
		log:   baseLog.With("service", "InventoryService"),
		repo:  repo,
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *inventoryService) ListCandidateSessions(ctx context.Context, organizationID uuid.UUID) ([]*types.Session, error) {
	if s.cache != nil {
		if sessions, ok := s.cache.GetSessions(ctx, organizationID); ok {
			return sessions, nil
		}
	}

	// Concurrent turns for one organization collapse into a single
	// database read.
	v, err, _ := s.group.Do(organizationID.String(), func() (any, error) {
		from := startOfDay(s.now())
		sessions, err := s.repo.ListCandidates(dbctx.Context{Ctx: ctx}, organizationID, from)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.SetSessions(ctx, organizationID, sessions)
		}
		return sessions, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*types.Session), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
