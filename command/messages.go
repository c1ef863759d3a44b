package command

import (
	"fmt"
	"strings"
)

const (
	TypeRunIngest   = "relay.command.ingest.run"
	TypeSendExample = "relay.command.example.send"
)

// RunIngestMessage triggers one full ingestion pass over the upstream
// signals API.
type RunIngestMessage struct{}

func (RunIngestMessage) Type() string { return TypeRunIngest }

func (RunIngestMessage) Validate() error { return nil }

// SendExampleMessage posts a synthetic case-creation message so operators
// can verify the CityControl connection without touching real signals. A
// blank SignalID gets a generated test identifier.
type SendExampleMessage struct {
	SignalID string
	Text     string
}

func (SendExampleMessage) Type() string { return TypeSendExample }

func (m SendExampleMessage) Validate() error {
	if raw := m.SignalID; raw != "" && strings.TrimSpace(raw) == "" {
		return fmt.Errorf("command: signal id must not be blank")
	}
	return nil
}
