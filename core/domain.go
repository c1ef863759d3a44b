package core

import (
	"fmt"
	"strings"
	"time"
)

// Signal is the upstream record as delivered by the signals API. The relay
// does not own its schema: beyond the signal id, fields are only read by
// message codecs, so the type stays an open field map.
type Signal map[string]any

func (s Signal) ID() string {
	return s.String("signal_id")
}

// String returns the named top-level field as a trimmed string, or "" when
// the field is absent or not a string.
func (s Signal) String(key string) string {
	if len(s) == 0 {
		return ""
	}
	value, ok := s[key]
	if !ok || value == nil {
		return ""
	}
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

// Lookup walks nested maps along path and returns the value found there.
func (s Signal) Lookup(path ...string) (any, bool) {
	if len(s) == 0 || len(path) == 0 {
		return nil, false
	}
	var current any = map[string]any(s)
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// LookupString is Lookup for string leaves, stringifying scalar values.
func (s Signal) LookupString(path ...string) string {
	value, ok := s.Lookup(path...)
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// DeliveryEntry is one row of the delivery log, keyed unique by SignalID.
// Once IsSent is true the entry is terminal: the ingestion loop never
// re-attempts delivery for it.
type DeliveryEntry struct {
	SignalID    string
	EnteredAt   time.Time
	SentAt      *time.Time
	HandlerName string
	Status      string
	IsSent      bool
}

func (e DeliveryEntry) Terminal() bool {
	return e.IsSent
}

// DeliveryOutcome is what a handler reports after an attempt. Handlers fold
// every internal failure into Success=false with a descriptive status, they
// never panic or propagate errors to the ingestion loop.
type DeliveryOutcome struct {
	Success bool
	Status  string
}

func FailedOutcome(format string, args ...any) DeliveryOutcome {
	return DeliveryOutcome{Success: false, Status: fmt.Sprintf(format, args...)}
}

// OutcomeUpdate carries the write-back of a delivery attempt to the log.
type OutcomeUpdate struct {
	HandlerName string
	Status      string
	IsSent      bool
	SentAt      time.Time
}

// SignalPage is one page of the upstream source. A nil Next marks the last
// page; the ingestion loop terminates on it instead of relying on sentinel
// errors.
type SignalPage struct {
	Signals []Signal
	Next    *string
}
