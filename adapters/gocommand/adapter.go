package gocommand

import (
	"context"
	"fmt"
	"strings"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	relaycmd "github.com/goliatone/go-signal-relay/command"
	"github.com/goliatone/go-signal-relay/core"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := gocmd.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(gocmd.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *gocmd.Registry
}

func NewRegistryAdapter(registry *gocmd.Registry) *RegistryAdapter {
	if registry == nil {
		registry = gocmd.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *gocmd.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd gocmd.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd gocmd.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// RegisterRelayCommands wires the relay's command handlers onto one
// registry and subscribes them on the dispatcher. The returned
// subscriptions let the caller tear the wiring down again.
func RegisterRelayCommands(
	adapter *RegistryAdapter,
	ingestService relaycmd.IngestService,
	sender relaycmd.CaseSender,
	logger core.Logger,
) ([]commanddispatcher.Subscription, error) {
	if adapter == nil {
		return nil, fmt.Errorf("gocommand: registry adapter is required")
	}

	subscriptions := make([]commanddispatcher.Subscription, 0, 2)

	ingestSub, err := RegisterAndSubscribe[relaycmd.RunIngestMessage](
		adapter, relaycmd.NewRunIngestCommand(ingestService, logger))
	if err != nil {
		return nil, err
	}
	subscriptions = append(subscriptions, ingestSub)

	exampleSub, err := RegisterAndSubscribe[relaycmd.SendExampleMessage](
		adapter, relaycmd.NewSendExampleCommand(sender, logger))
	if err != nil {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
		return nil, err
	}
	subscriptions = append(subscriptions, exampleSub)

	return subscriptions, nil
}
