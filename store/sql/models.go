package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-signal-relay/core"
	"github.com/uptrace/bun"
)

type deliveryLogRecord struct {
	bun.BaseModel `bun:"table:delivery_log,alias:dl"`

	ID          string     `bun:"id,pk"`
	SignalID    string     `bun:"signal_id,notnull,unique"`
	EnteredAt   time.Time  `bun:"entered_at,nullzero,notnull,default:current_timestamp"`
	SentAt      *time.Time `bun:"sent_at,nullzero"`
	HandlerName string     `bun:"handler_name"`
	Status      string     `bun:"status"`
	IsSent      bool       `bun:"is_sent,notnull,default:false"`
}

func newDeliveryLogRecord(entry core.DeliveryEntry) *deliveryLogRecord {
	return &deliveryLogRecord{
		SignalID:    strings.TrimSpace(entry.SignalID),
		EnteredAt:   entry.EnteredAt.UTC(),
		SentAt:      cloneTimePointer(entry.SentAt),
		HandlerName: strings.TrimSpace(entry.HandlerName),
		Status:      entry.Status,
		IsSent:      entry.IsSent,
	}
}

func (r *deliveryLogRecord) toDomain() core.DeliveryEntry {
	if r == nil {
		return core.DeliveryEntry{}
	}
	return core.DeliveryEntry{
		SignalID:    strings.TrimSpace(r.SignalID),
		EnteredAt:   r.EnteredAt.UTC(),
		SentAt:      cloneTimePointer(r.SentAt),
		HandlerName: strings.TrimSpace(r.HandlerName),
		Status:      r.Status,
		IsSent:      r.IsSent,
	}
}

func cloneTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := input.UTC()
	return &value
}
