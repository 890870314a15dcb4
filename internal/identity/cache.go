package identity

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/officepulse/officepulse/internal/identity/domain"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

type cacheEntry struct {
	id    snowflake.ID
	found bool
}

// Resolver maps user principal names to user row ids. Lookups are deduplicated
// so N concurrent requests for one UPN hit the database exactly once; misses
// are cached as misses. A Resolver is scoped to a single import run and must
// be discarded afterwards.
type Resolver struct {
	db    *gorm.DB
	users identitydomain.Repository

	group singleflight.Group
	cache sync.Map // upn -> cacheEntry
}

func NewResolver(db *gorm.DB, users identitydomain.Repository) *Resolver {
	return &Resolver{db: db, users: users}
}

// GetOrResolve returns the user row id for upn. The second return is false
// when no user row exists; the caller decides whether to skip or create
// (loaders skip).
func (r *Resolver) GetOrResolve(ctx context.Context, upn string) (snowflake.ID, bool, error) {
	if v, ok := r.cache.Load(upn); ok {
		e := v.(cacheEntry)
		return e.id, e.found, nil
	}

	v, err, _ := r.group.Do(upn, func() (any, error) {
		if v, ok := r.cache.Load(upn); ok {
			return v.(cacheEntry), nil
		}
		user, err := r.users.FindByUPN(ctx, r.db, upn)
		if err != nil {
			return nil, err
		}
		var e cacheEntry
		if user != nil {
			e = cacheEntry{id: user.ID, found: true}
		}
		r.cache.Store(upn, e)
		return e, nil
	})
	if err != nil {
		return 0, false, err
	}
	e := v.(cacheEntry)
	return e.id, e.found, nil
}
