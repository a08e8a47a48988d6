package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/api/metrics"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

const defaultRoleTTL = 10 * time.Minute

// cacheClient is the subset of the go-redis API the role cache needs.
type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RoleCache is a read-through cache in front of a RoleRepository.
// Key format: role:<key>:<value>
//
// Redis failures never fail a request: the lookup falls through to the
// wrapped repository and the error is only logged.
//
// Rows read inside an open transaction are not cached: they may never be
// committed.
type RoleCache struct {
	next   ports.RoleRepository
	client cacheClient
	ttl    time.Duration
	inTx   func(ctx context.Context) bool
	log    zerolog.Logger
}

var _ ports.RoleRepository = (*RoleCache)(nil)

// NewRoleCache wraps next. ttl <= 0 falls back to defaultRoleTTL. inTx
// reports whether ctx carries an open transaction of the wrapped store; nil
// means the store is never transactional.
func NewRoleCache(
	next ports.RoleRepository,
	client cacheClient,
	ttl time.Duration,
	inTx func(ctx context.Context) bool,
	log zerolog.Logger,
) *RoleCache {
	if ttl <= 0 {
		ttl = defaultRoleTTL
	}
	if inTx == nil {
		inTx = func(context.Context) bool { return false }
	}
	return &RoleCache{next: next, client: client, ttl: ttl, inTx: inTx, log: log}
}

func (c *RoleCache) Create(ctx context.Context, role *domain.Role) error {
	return c.next.Create(ctx, role)
}

func (c *RoleCache) Find(ctx context.Context, key domain.RoleKey, value string) (*domain.Role, error) {
	raw, err := c.client.Get(ctx, c.key(key, value)).Bytes()
	switch {
	case err == nil:
		var role domain.Role
		if jsonErr := json.Unmarshal(raw, &role); jsonErr == nil {
			metrics.RoleCacheLookupsTotal.WithLabelValues("hit").Inc()
			return &role, nil
		}
		metrics.RoleCacheLookupsTotal.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.RoleCacheLookupsTotal.WithLabelValues("miss").Inc()
	default:
		metrics.RoleCacheLookupsTotal.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Str("key", string(key)).Msg("role cache read failed")
	}

	role, err := c.next.Find(ctx, key, value)
	if err != nil || role == nil {
		return role, err
	}
	if !c.inTx(ctx) {
		c.store(ctx, role)
	}
	return role, nil
}

func (c *RoleCache) Update(ctx context.Context, role *domain.Role) error {
	prev, err := c.next.Find(ctx, domain.RoleByID, role.ID)
	if err != nil {
		return err
	}
	if err := c.next.Update(ctx, role); err != nil {
		return err
	}
	c.evict(ctx, role, prev)
	return nil
}

func (c *RoleCache) Delete(ctx context.Context, id string) error {
	prev, err := c.next.Find(ctx, domain.RoleByID, id)
	if err != nil {
		return err
	}
	if err := c.next.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, &domain.Role{ID: id}, prev)
	return nil
}

func (c *RoleCache) List(ctx context.Context, q ports.ListQuery) ([]*domain.Role, int64, error) {
	return c.next.List(ctx, q)
}

func (c *RoleCache) store(ctx context.Context, role *domain.Role) {
	raw, err := json.Marshal(role)
	if err != nil {
		return
	}
	for _, k := range []string{c.key(domain.RoleByID, role.ID), c.key(domain.RoleByName, role.Name)} {
		if err := c.client.Set(ctx, k, raw, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("role_id", role.ID).Msg("role cache write failed")
			return
		}
	}
}

func (c *RoleCache) evict(ctx context.Context, roles ...*domain.Role) {
	var keys []string
	for _, r := range roles {
		if r == nil {
			continue
		}
		keys = append(keys, c.key(domain.RoleByID, r.ID))
		if r.Name != "" {
			keys = append(keys, c.key(domain.RoleByName, r.Name))
		}
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Msg("role cache eviction failed")
	}
}

func (c *RoleCache) key(key domain.RoleKey, value string) string {
	return fmt.Sprintf("role:%s:%s", key, value)
}
