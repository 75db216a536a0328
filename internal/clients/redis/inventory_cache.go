package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/coachline/registration-backend/internal/domain"
	"github.com/coachline/registration-backend/internal/pkg/envutil"
	"github.com/coachline/registration-backend/internal/pkg/logger"
)

// InventoryCache holds a short-lived copy of an organization's
// candidate sessions. Matching is read-only, so a brief cache is safe;
// the TTL just bounds how long a newly full session can still be
// offered.
type InventoryCache interface {
	GetSessions(ctx context.Context, organizationID uuid.UUID) ([]*types.Session, bool)
	SetSessions(ctx context.Context, organizationID uuid.UUID, sessions []*types.Session)
	Close() error
}

type inventoryCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewInventoryCache(baseLog *logger.Logger) (InventoryCache, error) {
	addr := strings.TrimSpace(envutil.String("REDIS_ADDR", ""))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ttl := envutil.Duration("INVENTORY_CACHE_TTL", 30*time.Second)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &inventoryCache{
		log: baseLog.With("service", "InventoryCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func cacheKey(organizationID uuid.UUID) string {
	return "inventory:sessions:" + organizationID.String()
}

func (c *inventoryCache) GetSessions(ctx context.Context, organizationID uuid.UUID) ([]*types.Session, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(organizationID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("inventory cache read failed", "error", err)
		}
		return nil, false
	}
	var out []*types.Session
	if err := json.Unmarshal(raw, &out); err != nil {
		c.log.Warn("inventory cache entry malformed, ignoring", "error", err)
		return nil, false
	}
	return out, true
}

func (c *inventoryCache) SetSessions(ctx context.Context, organizationID uuid.UUID, sessions []*types.Session) {
	raw, err := json.Marshal(sessions)
	if err != nil {
		c.log.Warn("inventory cache encode failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(organizationID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("inventory cache write failed", "error", err)
	}
}

func (c *inventoryCache) Close() error { return c.rdb.Close() }
