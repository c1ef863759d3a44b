package command

import (
	"context"
	"time"

	gocmd "github.com/goliatone/go-command"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/goliatone/go-signal-relay/core"
	"github.com/goliatone/go-signal-relay/ingest"
	"github.com/goliatone/go-signal-relay/providers/sigmax"
)

// IngestService runs one ingestion pass.
type IngestService interface {
	Run(ctx context.Context) (ingest.RunReport, error)
}

// CaseSender posts case-creation messages.
type CaseSender interface {
	CreateCase(ctx context.Context, signal core.Signal) error
}

type RunIngestCommand struct {
	service IngestService
	logger  core.Logger
}

func NewRunIngestCommand(service IngestService, logger core.Logger) *RunIngestCommand {
	return &RunIngestCommand{service: service, logger: glog.Ensure(logger)}
}

func (c *RunIngestCommand) Execute(ctx context.Context, msg RunIngestMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: ingest service is required")
	}
	report, err := c.service.Run(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, report)
	return nil
}

type SendExampleCommand struct {
	sender CaseSender
	logger core.Logger

	Now   func() time.Time
	NewID func() string
}

func NewSendExampleCommand(sender CaseSender, logger core.Logger) *SendExampleCommand {
	return &SendExampleCommand{
		sender: sender,
		logger: glog.Ensure(logger),
		Now: func() time.Time {
			return time.Now().UTC()
		},
		NewID: uuid.NewString,
	}
}

func (c *SendExampleCommand) Execute(ctx context.Context, msg SendExampleMessage) error {
	if c == nil || c.sender == nil {
		return commandDependencyError("command: case sender is required")
	}

	signalID := msg.SignalID
	if signalID == "" {
		signalID = "TEST MESSAGE FROM AMSTERDAM " + c.newID()
	}
	signal := core.Signal{
		"signal_id":  signalID,
		"created_at": c.now().Format(time.RFC3339),
	}
	if msg.Text != "" {
		signal["text"] = msg.Text
	}

	if err := c.sender.CreateCase(ctx, signal); err != nil {
		return err
	}
	c.logger.Info("example message sent", "signal_id", signalID)
	storeResult(ctx, signalID)
	return nil
}

func (c *SendExampleCommand) now() time.Time {
	if c != nil && c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func (c *SendExampleCommand) newID() string {
	if c != nil && c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}

var _ CaseSender = (*sigmax.Client)(nil)
