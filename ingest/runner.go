package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-signal-relay/core"
)

// Runner drains the upstream source once: authenticate, walk every page,
// and push each unseen signal through the handler registry. Repeated runs
// are idempotent because the delivery log keeps exactly one entry per
// signal id and terminal entries are never re-attempted.
type Runner struct {
	Source   core.SignalSource
	Store    core.DeliveryLogStore
	Registry core.Registry
	Logger   core.Logger
	Now      func() time.Time
}

// RunReport summarizes one ingestion run.
type RunReport struct {
	Pages     int
	Seen      int
	Skipped   int
	Delivered int
	Failed    int
}

func NewRunner(source core.SignalSource, store core.DeliveryLogStore, registry core.Registry, logger core.Logger) *Runner {
	return &Runner{
		Source:   source,
		Store:    store,
		Registry: registry,
		Logger:   glog.Ensure(logger),
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Run executes one full pass over the source. Authentication and page
// fetch failures abort the run; a failure on an individual signal is
// recorded in the log and never aborts the rest of the page.
func (r *Runner) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{}
	if r == nil || r.Source == nil || r.Store == nil || r.Registry == nil {
		return report, fmt.Errorf("ingest: runner requires source, store, and registry")
	}

	token, err := r.Source.Authenticate(ctx)
	if err != nil {
		return report, fmt.Errorf("ingest: authenticate: %w", err)
	}

	pageURL := strings.TrimSpace(r.Source.FirstPageURL())
	if pageURL == "" {
		return report, fmt.Errorf("ingest: source returned an empty first page url")
	}

	for pageURL != "" {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("ingest: run canceled: %w", err)
		}

		page, err := r.Source.FetchPage(ctx, pageURL, token)
		if err != nil {
			return report, fmt.Errorf("ingest: fetch page %q: %w", pageURL, err)
		}
		report.Pages++

		for _, signal := range page.Signals {
			report.Seen++
			r.processSignal(ctx, signal, &report)
		}

		pageURL = ""
		if page.Next != nil {
			pageURL = strings.TrimSpace(*page.Next)
		}
	}

	r.logger().Info("ingestion run finished",
		"pages", report.Pages,
		"seen", report.Seen,
		"skipped", report.Skipped,
		"delivered", report.Delivered,
		"failed", report.Failed,
	)
	return report, nil
}

func (r *Runner) processSignal(ctx context.Context, signal core.Signal, report *RunReport) {
	signalID := signal.ID()
	if signalID == "" {
		report.Failed++
		r.logger().Error("skipping signal without an id")
		return
	}

	entry, err := r.Store.Get(ctx, signalID)
	if errors.Is(err, core.ErrEntryNotFound) {
		entry, err = r.Store.Create(ctx, core.DeliveryEntry{
			SignalID:  signalID,
			EnteredAt: r.now(),
		})
	}
	if err != nil {
		report.Failed++
		r.logger().Error("delivery log lookup failed", "signal_id", signalID, "error", err)
		return
	}
	if entry.Terminal() {
		report.Skipped++
		return
	}

	handler, ok := r.Registry.Route(signal)
	if !ok || handler == nil {
		report.Failed++
		r.logger().Error("no handler routed", "signal_id", signalID)
		return
	}

	outcome := handler.Deliver(ctx, signal)
	update := core.OutcomeUpdate{
		HandlerName: handler.Name(),
		Status:      outcome.Status,
		IsSent:      outcome.Success,
	}
	if outcome.Success {
		update.SentAt = r.now()
	}

	if _, err := r.Store.RecordOutcome(ctx, signalID, update); err != nil {
		report.Failed++
		r.logger().Error("recording delivery outcome failed", "signal_id", signalID, "error", err)
		return
	}

	if outcome.Success {
		report.Delivered++
		r.logger().Info("signal delivered", "signal_id", signalID, "handler", handler.Name())
		return
	}
	report.Failed++
	r.logger().Info("signal delivery failed, will retry on the next run",
		"signal_id", signalID, "handler", handler.Name(), "status", outcome.Status)
}

func (r *Runner) now() time.Time {
	if r != nil && r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Runner) logger() core.Logger {
	if r != nil && r.Logger != nil {
		return r.Logger
	}
	return glog.Ensure(nil)
}
