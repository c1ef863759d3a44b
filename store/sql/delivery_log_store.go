package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-signal-relay/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DeliveryLogStore persists delivery log entries keyed unique by signal id.
type DeliveryLogStore struct {
	db   *bun.DB
	repo repository.Repository[*deliveryLogRecord]
}

func NewDeliveryLogStore(db *bun.DB) (*DeliveryLogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*deliveryLogRecord](db, deliveryLogHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid delivery log repository wiring: %w", err)
		}
	}
	return &DeliveryLogStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *DeliveryLogStore) Get(ctx context.Context, signalID string) (core.DeliveryEntry, error) {
	if s == nil || s.db == nil {
		return core.DeliveryEntry{}, fmt.Errorf("sqlstore: delivery log store is not configured")
	}
	signalID = strings.TrimSpace(signalID)
	if signalID == "" {
		return core.DeliveryEntry{}, fmt.Errorf("sqlstore: signal id is required")
	}
	record := &deliveryLogRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.signal_id = ?", signalID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.DeliveryEntry{}, fmt.Errorf("%w: signal %q", core.ErrEntryNotFound, signalID)
		}
		return core.DeliveryEntry{}, err
	}
	return record.toDomain(), nil
}

// Create records the first observation of a signal. A concurrent run racing
// on the same signal id loses the insert on the unique key; the loser reads
// back the winner's row, keeping at most one entry per signal id.
func (s *DeliveryLogStore) Create(ctx context.Context, entry core.DeliveryEntry) (core.DeliveryEntry, error) {
	if s == nil || s.db == nil {
		return core.DeliveryEntry{}, fmt.Errorf("sqlstore: delivery log store is not configured")
	}
	entry.SignalID = strings.TrimSpace(entry.SignalID)
	if entry.SignalID == "" {
		return core.DeliveryEntry{}, fmt.Errorf("sqlstore: signal id is required")
	}
	if entry.EnteredAt.IsZero() {
		entry.EnteredAt = time.Now()
	}
	// Truncate to the driver's stored precision so the returned entry
	// matches a later read-back of the same row.
	entry.EnteredAt = entry.EnteredAt.UTC().Truncate(time.Microsecond)

	record := newDeliveryLogRecord(entry)
	record.ID = uuid.NewString()
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return s.Get(ctx, entry.SignalID)
		}
		return core.DeliveryEntry{}, err
	}
	return record.toDomain(), nil
}

// RecordOutcome writes the result of a delivery attempt. Terminal entries
// are immutable: writing over an is_sent row fails instead of silently
// re-recording, backing the never-redelivered invariant at the storage
// layer as well as in the loop.
func (s *DeliveryLogStore) RecordOutcome(
	ctx context.Context,
	signalID string,
	update core.OutcomeUpdate,
) (core.DeliveryEntry, error) {
	if s == nil || s.db == nil {
		return core.DeliveryEntry{}, fmt.Errorf("sqlstore: delivery log store is not configured")
	}
	signalID = strings.TrimSpace(signalID)
	if signalID == "" {
		return core.DeliveryEntry{}, fmt.Errorf("sqlstore: signal id is required")
	}
	sentAt := update.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	sentAt = sentAt.UTC().Truncate(time.Microsecond)

	result, err := s.db.NewUpdate().
		Model((*deliveryLogRecord)(nil)).
		Set("sent_at = ?", sentAt).
		Set("handler_name = ?", strings.TrimSpace(update.HandlerName)).
		Set("status = ?", update.Status).
		Set("is_sent = ?", update.IsSent).
		Where("signal_id = ?", signalID).
		Where("is_sent = ?", false).
		Exec(ctx)
	if err != nil {
		return core.DeliveryEntry{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return core.DeliveryEntry{}, err
	}
	if affected == 0 {
		existing, getErr := s.Get(ctx, signalID)
		if getErr != nil {
			return core.DeliveryEntry{}, getErr
		}
		if existing.IsSent {
			return core.DeliveryEntry{}, fmt.Errorf(
				"sqlstore: delivery entry already sent for signal %q", signalID)
		}
		return core.DeliveryEntry{}, fmt.Errorf(
			"sqlstore: outcome write affected no rows for signal %q", signalID)
	}
	return s.Get(ctx, signalID)
}

// CountEntries reports the number of delivery log rows; the health-check
// boundary uses it as a data liveness probe.
func (s *DeliveryLogStore) CountEntries(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: delivery log store is not configured")
	}
	return s.db.NewSelect().Model((*deliveryLogRecord)(nil)).Count(ctx)
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
