package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

const LogOnlyHandlerName = "local-log-only"

// LogOnlyStatus is the terminal status recorded for signals that no
// external system claimed.
const LogOnlyStatus = "only logged"

// LogOnlyHandler accepts every signal and performs no network I/O: it logs
// the signal and reports success. It guarantees every signal reaches a
// terminal delivery state even with zero external services configured.
type LogOnlyHandler struct {
	logger Logger
}

func NewLogOnlyHandler(logger Logger) *LogOnlyHandler {
	return &LogOnlyHandler{logger: glog.Ensure(logger)}
}

func (h *LogOnlyHandler) Name() string {
	return LogOnlyHandlerName
}

func (h *LogOnlyHandler) CanHandle(Signal) bool {
	return true
}

func (h *LogOnlyHandler) Deliver(ctx context.Context, signal Signal) DeliveryOutcome {
	logger := h.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	logger.Info("signal will only be logged", "signal_id", signal.ID())
	return DeliveryOutcome{Success: true, Status: LogOnlyStatus}
}
