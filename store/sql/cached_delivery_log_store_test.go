package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-signal-relay/core"
)

type stubDeliveryLogStore struct {
	mu           sync.Mutex
	entries      map[string]core.DeliveryEntry
	getCalls     int
	outcomeCalls int
}

func newStubDeliveryLogStore() *stubDeliveryLogStore {
	return &stubDeliveryLogStore{entries: map[string]core.DeliveryEntry{}}
}

func (s *stubDeliveryLogStore) Get(_ context.Context, signalID string) (core.DeliveryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	entry, ok := s.entries[signalID]
	if !ok {
		return core.DeliveryEntry{}, core.ErrEntryNotFound
	}
	return entry, nil
}

func (s *stubDeliveryLogStore) Create(_ context.Context, entry core.DeliveryEntry) (core.DeliveryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[entry.SignalID]; ok {
		return existing, nil
	}
	s.entries[entry.SignalID] = entry
	return entry, nil
}

func (s *stubDeliveryLogStore) RecordOutcome(_ context.Context, signalID string, update core.OutcomeUpdate) (core.DeliveryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomeCalls++
	entry, ok := s.entries[signalID]
	if !ok {
		return core.DeliveryEntry{}, core.ErrEntryNotFound
	}
	entry.HandlerName = update.HandlerName
	entry.Status = update.Status
	entry.IsSent = update.IsSent
	s.entries[signalID] = entry
	return entry, nil
}

func newTestDeliveryCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestCachedDeliveryLogStore_Get_MissFetchThenHit(t *testing.T) {
	base := newStubDeliveryLogStore()
	base.entries["42"] = core.DeliveryEntry{SignalID: "42", IsSent: true, Status: "Sent to Sigmax"}

	store, err := NewCachedDeliveryLogStore(base, newTestDeliveryCacheService(t))
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	if _, err := store.Get(context.Background(), "42"); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected one base read, got %d", base.getCalls)
	}

	entry, err := store.Get(context.Background(), "42")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected cache hit, base reads=%d", base.getCalls)
	}
	if !entry.IsSent {
		t.Fatalf("cache returned wrong entry %+v", entry)
	}
}

func TestCachedDeliveryLogStore_RecordOutcomeInvalidates(t *testing.T) {
	base := newStubDeliveryLogStore()
	base.entries["42"] = core.DeliveryEntry{SignalID: "42"}

	store, err := NewCachedDeliveryLogStore(base, newTestDeliveryCacheService(t))
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	if _, err := store.Get(context.Background(), "42"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	if _, err := store.RecordOutcome(context.Background(), "42", core.OutcomeUpdate{
		HandlerName: "sigmax",
		Status:      "Sent to Sigmax",
		IsSent:      true,
	}); err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	entry, err := store.Get(context.Background(), "42")
	if err != nil {
		t.Fatalf("get after outcome: %v", err)
	}
	if !entry.IsSent {
		t.Fatalf("stale cache entry survived invalidation: %+v", entry)
	}
	if base.getCalls != 2 {
		t.Fatalf("expected re-read after invalidation, base reads=%d", base.getCalls)
	}
}

func TestCachedDeliveryLogStore_MissPropagatesNotFound(t *testing.T) {
	store, err := NewCachedDeliveryLogStore(newStubDeliveryLogStore(), newTestDeliveryCacheService(t))
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, core.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestDeliveryEntryCacheKey(t *testing.T) {
	key, err := DeliveryEntryCacheKey("sig/42 a")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if key != "go-signal-relay::delivery_entry::v1::sig%2F42%20a" {
		t.Fatalf("unexpected key %q", key)
	}
	if _, err := DeliveryEntryCacheKey(" "); err == nil {
		t.Fatalf("expected error for blank signal id")
	}
}
