package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-signal-relay/core"
)

const deliveryEntryCacheKeyPrefix = "go-signal-relay::delivery_entry::v1"

// CachedDeliveryLogStore layers a read-through cache over the delivery log.
// Terminal entries dominate reads after a few loop passes (every signal
// ends is_sent = true eventually) and never change again, so cache
// coherence only needs delete-on-write for the pending window.
type CachedDeliveryLogStore struct {
	base  core.DeliveryLogStore
	cache repositorycache.CacheService
}

func NewCachedDeliveryLogStore(
	base core.DeliveryLogStore,
	cacheService repositorycache.CacheService,
) (*CachedDeliveryLogStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base delivery log store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: delivery log cache service is required")
	}
	return &CachedDeliveryLogStore{base: base, cache: cacheService}, nil
}

// DeliveryEntryCacheKey returns the deterministic cache key contract for
// delivery entry reads: go-signal-relay::delivery_entry::v1::<signal_id>
// with the signal id URL-path escaped.
func DeliveryEntryCacheKey(signalID string) (string, error) {
	signalID = strings.TrimSpace(signalID)
	if signalID == "" {
		return "", fmt.Errorf("sqlstore: signal id is required")
	}
	return deliveryEntryCacheKeyPrefix + "::" + url.PathEscape(signalID), nil
}

func (s *CachedDeliveryLogStore) Get(ctx context.Context, signalID string) (core.DeliveryEntry, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.DeliveryEntry{}, fmt.Errorf("sqlstore: cached delivery log store is not configured")
	}
	cacheKey, err := DeliveryEntryCacheKey(signalID)
	if err != nil {
		return core.DeliveryEntry{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.DeliveryEntry, error) {
		return s.base.Get(ctx, strings.TrimSpace(signalID))
	})
}

func (s *CachedDeliveryLogStore) Create(ctx context.Context, entry core.DeliveryEntry) (core.DeliveryEntry, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.DeliveryEntry{}, fmt.Errorf("sqlstore: cached delivery log store is not configured")
	}
	created, err := s.base.Create(ctx, entry)
	if err != nil {
		return core.DeliveryEntry{}, err
	}
	if err := s.invalidate(ctx, created.SignalID); err != nil {
		return core.DeliveryEntry{}, err
	}
	return created, nil
}

func (s *CachedDeliveryLogStore) RecordOutcome(
	ctx context.Context,
	signalID string,
	update core.OutcomeUpdate,
) (core.DeliveryEntry, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.DeliveryEntry{}, fmt.Errorf("sqlstore: cached delivery log store is not configured")
	}
	updated, err := s.base.RecordOutcome(ctx, signalID, update)
	if err != nil {
		return core.DeliveryEntry{}, err
	}
	if err := s.invalidate(ctx, updated.SignalID); err != nil {
		return core.DeliveryEntry{}, err
	}
	return updated, nil
}

func (s *CachedDeliveryLogStore) invalidate(ctx context.Context, signalID string) error {
	cacheKey, err := DeliveryEntryCacheKey(signalID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}
