package command

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-signal-relay/core"
	"github.com/goliatone/go-signal-relay/ingest"
)

type fakeIngestService struct {
	report ingest.RunReport
	err    error
	calls  int
}

func (s *fakeIngestService) Run(context.Context) (ingest.RunReport, error) {
	s.calls++
	return s.report, s.err
}

type fakeCaseSender struct {
	signals []core.Signal
	err     error
}

func (s *fakeCaseSender) CreateCase(_ context.Context, signal core.Signal) error {
	s.signals = append(s.signals, signal)
	return s.err
}

func TestRunIngestCommand_Execute(t *testing.T) {
	service := &fakeIngestService{report: ingest.RunReport{Pages: 2, Delivered: 3}}
	cmd := NewRunIngestCommand(service, nil)

	if err := cmd.Execute(context.Background(), RunIngestMessage{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if service.calls != 1 {
		t.Fatalf("expected 1 run, got %d", service.calls)
	}
}

func TestRunIngestCommand_PropagatesRunError(t *testing.T) {
	service := &fakeIngestService{err: fmt.Errorf("ingest: authenticate: boom")}
	cmd := NewRunIngestCommand(service, nil)

	if err := cmd.Execute(context.Background(), RunIngestMessage{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunIngestCommand_RequiresService(t *testing.T) {
	cmd := NewRunIngestCommand(nil, nil)
	if err := cmd.Execute(context.Background(), RunIngestMessage{}); err == nil {
		t.Fatalf("expected dependency error")
	}
}

func TestSendExampleCommand_GeneratesTestSignal(t *testing.T) {
	sender := &fakeCaseSender{}
	cmd := NewSendExampleCommand(sender, nil)
	cmd.NewID = func() string { return "fixed-uuid" }
	cmd.Now = func() time.Time {
		return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	}

	if err := cmd.Execute(context.Background(), SendExampleMessage{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(sender.signals) != 1 {
		t.Fatalf("expected 1 case, got %d", len(sender.signals))
	}
	signal := sender.signals[0]
	if signal.ID() != "TEST MESSAGE FROM AMSTERDAM fixed-uuid" {
		t.Fatalf("unexpected signal id %q", signal.ID())
	}
	if signal.String("created_at") != "2024-03-01T10:00:00Z" {
		t.Fatalf("unexpected created_at %q", signal.String("created_at"))
	}
}

func TestSendExampleCommand_UsesProvidedSignalID(t *testing.T) {
	sender := &fakeCaseSender{}
	cmd := NewSendExampleCommand(sender, nil)

	if err := cmd.Execute(context.Background(), SendExampleMessage{SignalID: "manual-1"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if sender.signals[0].ID() != "manual-1" {
		t.Fatalf("unexpected signal id %q", sender.signals[0].ID())
	}
}

func TestSendExampleMessage_ValidateRejectsBlankID(t *testing.T) {
	if err := (SendExampleMessage{SignalID: "   "}).Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := (SendExampleMessage{}).Validate(); err != nil {
		t.Fatalf("empty id should be allowed: %v", err)
	}
	if !strings.HasPrefix(TypeSendExample, "relay.command.") {
		t.Fatalf("unexpected message type %q", TypeSendExample)
	}
}
