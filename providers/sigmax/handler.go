package sigmax

import (
	"context"
	"errors"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-signal-relay/core"
)

const (
	// HandlerName identifies this adapter in the delivery log.
	HandlerName = "sigmax"

	StatusSent          = "Sent to Sigmax"
	StatusNotConfigured = "not configured"
)

// Handler is the CityControl delivery adapter. It registers a case for the
// signal, attaches the generated PDF summary, and attaches the signal photo
// when one is available. Every internal failure folds into a failed outcome
// so the ingestion loop keeps the entry pending for the next run.
type Handler struct {
	Client    *Client
	Artifacts *ArtifactBuilder
	Logger    core.Logger
	Now       func() time.Time

	// Matches overrides the routing predicate. The default accepts signals
	// that carry a street name, since CityControl cases require an address.
	Matches func(core.Signal) bool
}

func NewHandler(client *Client, artifacts *ArtifactBuilder, logger core.Logger) *Handler {
	if client == nil {
		client = NewClient(nil, nil, logger)
	}
	if artifacts == nil {
		artifacts = NewArtifactBuilder(client.Transport)
	}
	return &Handler{
		Client:    client,
		Artifacts: artifacts,
		Logger:    glog.Ensure(logger),
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (h *Handler) Name() string {
	return HandlerName
}

func (h *Handler) CanHandle(signal core.Signal) bool {
	if h != nil && h.Matches != nil {
		return h.Matches(signal)
	}
	return signal.LookupString("location", "address", "openbare_ruimte") != ""
}

func (h *Handler) Deliver(ctx context.Context, signal core.Signal) core.DeliveryOutcome {
	if h == nil || h.Client == nil {
		return core.FailedOutcome("sigmax handler is not initialized")
	}
	if err := h.Client.CreateCase(ctx, signal); err != nil {
		if errors.Is(err, core.ErrServiceNotConfigured) {
			return core.DeliveryOutcome{Success: false, Status: StatusNotConfigured}
		}
		return core.FailedOutcome("case creation failed: %v", err)
	}

	if err := h.attachSummary(ctx, signal); err != nil {
		return core.FailedOutcome("attaching case document failed: %v", err)
	}
	h.attachImage(ctx, signal)

	return core.DeliveryOutcome{Success: true, Status: StatusSent}
}

func (h *Handler) attachSummary(ctx context.Context, signal core.Signal) error {
	if h.Artifacts == nil {
		return fmt.Errorf("sigmax: handler requires an artifact builder")
	}
	doc, err := h.Artifacts.SummaryPDF(signal)
	if err != nil {
		return err
	}
	return h.Client.AttachDocument(ctx, signal.ID(), doc, h.now())
}

// attachImage is best effort: a missing or unreachable photo never fails
// the delivery.
func (h *Handler) attachImage(ctx context.Context, signal core.Signal) {
	if h.Artifacts == nil {
		return
	}
	doc, ok := h.Artifacts.FetchImage(ctx, signal)
	if !ok {
		return
	}
	if err := h.Client.AttachDocument(ctx, signal.ID(), doc, h.now()); err != nil {
		h.logger().Error("attaching signal photo failed", "signal_id", signal.ID(), "error", err)
	}
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *Handler) logger() core.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return glog.Ensure(nil)
}

var _ core.Handler = (*Handler)(nil)
