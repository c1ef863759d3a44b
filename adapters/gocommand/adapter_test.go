package gocommand

import (
	"context"
	"testing"

	relaycmd "github.com/goliatone/go-signal-relay/command"
	"github.com/goliatone/go-signal-relay/core"
	"github.com/goliatone/go-signal-relay/ingest"
)

type stubIngestService struct {
	calls int
}

func (s *stubIngestService) Run(context.Context) (ingest.RunReport, error) {
	s.calls++
	return ingest.RunReport{}, nil
}

type stubCaseSender struct {
	calls int
}

func (s *stubCaseSender) CreateCase(context.Context, core.Signal) error {
	s.calls++
	return nil
}

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(relaycmd.RunIngestMessage{}); err != nil {
		t.Fatalf("run ingest message should be valid: %v", err)
	}
	if err := ValidateMessageContract(struct{}{}); err == nil {
		t.Fatalf("expected error for message without Type()")
	}
}

func TestRegisterRelayCommands(t *testing.T) {
	adapter := NewRegistryAdapter(nil)
	service := &stubIngestService{}
	sender := &stubCaseSender{}

	subscriptions, err := RegisterRelayCommands(adapter, service, sender, nil)
	if err != nil {
		t.Fatalf("register relay commands: %v", err)
	}
	defer func() {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
	}()
	if len(subscriptions) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(subscriptions))
	}

	if err := Dispatch(context.Background(), relaycmd.RunIngestMessage{}); err != nil {
		t.Fatalf("dispatch ingest: %v", err)
	}
	if service.calls != 1 {
		t.Fatalf("expected 1 ingest run, got %d", service.calls)
	}

	if err := Dispatch(context.Background(), relaycmd.SendExampleMessage{SignalID: "manual-1"}); err != nil {
		t.Fatalf("dispatch example: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("expected 1 example case, got %d", sender.calls)
	}
}

func TestRegisterRelayCommands_RequiresAdapter(t *testing.T) {
	if _, err := RegisterRelayCommands(nil, &stubIngestService{}, &stubCaseSender{}, nil); err == nil {
		t.Fatalf("expected error for nil adapter")
	}
}
