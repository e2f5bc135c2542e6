// Package catalog resolves human-facing master data keys (machine codes, part
// numbers, downtime reason codes) to stable catalog entries.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/db"
	"github.com/ukydev/factory-log/internal/models"
)

// DefaultTTL is how long a resolved entry may be served from cache.
const DefaultTTL = 2 * time.Minute

// Cache stores resolved entries for a bounded time.
type Cache interface {
	Get(ctx context.Context, kind models.CatalogKind, key string) (models.CatalogEntry, bool, error)
	Set(ctx context.Context, entry models.CatalogEntry, ttl time.Duration) error
}

// Resolver looks up active catalog entries through a short-lived cache. A
// cached entry may outlive its deactivation by up to one TTL; unknown or
// inactive keys always fail with apperr.ErrInvalidReference.
type Resolver struct {
	store db.CatalogStore
	cache Cache
	ttl   time.Duration
	log   logrus.FieldLogger
}

// NewResolver creates a resolver. A nil cache means an in-process MemoryCache.
func NewResolver(store db.CatalogStore, cache Cache, ttl time.Duration, log logrus.FieldLogger) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		store: store,
		cache: cache,
		ttl:   ttl,
		log:   log.WithField("component", "catalog"),
	}
}

// Resolve returns the active entry of kind registered under key.
func (r *Resolver) Resolve(ctx context.Context, kind models.CatalogKind, key string) (models.CatalogEntry, error) {
	key = strings.TrimSpace(key)
	if !models.IsValidCatalogKind(kind) {
		return models.CatalogEntry{}, apperr.Invalid("kind", fmt.Sprintf("unknown catalog kind %q", kind))
	}
	if key == "" {
		return models.CatalogEntry{}, apperr.Reference(string(kind), key)
	}

	entry, ok, err := r.cache.Get(ctx, kind, key)
	if err != nil {
		// a broken cache only costs a store round trip
		r.log.WithError(err).WithFields(logrus.Fields{"kind": kind, "key": key}).Warn("Catalog cache read failed")
	}
	if ok {
		return entry, nil
	}

	found, err := r.store.FindCatalogEntry(ctx, kind, key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.CatalogEntry{}, apperr.Reference(string(kind), key)
		}
		return models.CatalogEntry{}, apperr.Persistence("resolve catalog entry", err)
	}
	if !found.Active {
		return models.CatalogEntry{}, apperr.Reference(string(kind), key)
	}

	if err := r.cache.Set(ctx, *found, r.ttl); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{"kind": kind, "key": key}).Warn("Catalog cache write failed")
	}
	return *found, nil
}
