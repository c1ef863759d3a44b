package health

import (
	"context"
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-signal-relay/core"
)

// EntryCounter reports how many delivery log rows exist.
type EntryCounter interface {
	CountEntries(ctx context.Context) (int, error)
}

// Checker verifies the relay's two operational preconditions: the delivery
// log database answers queries and every active service has its settings.
type Checker struct {
	DB      bun.IDB
	Guard   *core.ConfigGuard
	Counter EntryCounter
	Logger  core.Logger
}

func NewChecker(db bun.IDB, guard *core.ConfigGuard, counter EntryCounter, logger core.Logger) *Checker {
	return &Checker{
		DB:      db,
		Guard:   guard,
		Counter: counter,
		Logger:  glog.Ensure(logger),
	}
}

// Check returns nil when the relay is healthy. The returned error message
// is safe to expose on an HTTP health endpoint.
func (c *Checker) Check(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("health: checker is not initialized")
	}

	if c.DB != nil {
		var one int
		if err := c.DB.NewRaw("SELECT 1").Scan(ctx, &one); err != nil {
			c.logger().Error("database connectivity failed", "error", err)
			return fmt.Errorf("health: database connectivity failed")
		}
	}

	if c.Guard != nil {
		report := c.Guard.Check()
		if !report.OK {
			c.logger().Error("service misconfigured", "missing", strings.Join(report.Missing, ", "))
			return fmt.Errorf("health: service misconfigured: not all required settings are present")
		}
	}

	return nil
}

// CheckData guards against an empty delivery log after the relay has been
// running for a while, which usually means ingestion stopped silently.
func (c *Checker) CheckData(ctx context.Context, minimum int) error {
	if c == nil || c.Counter == nil {
		return fmt.Errorf("health: checker requires an entry counter")
	}
	count, err := c.Counter.CountEntries(ctx)
	if err != nil {
		return fmt.Errorf("health: counting delivery log entries: %w", err)
	}
	if count < minimum {
		return fmt.Errorf("health: too few delivery log entries: %d < %d", count, minimum)
	}
	return nil
}

func (c *Checker) logger() core.Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return glog.Ensure(nil)
}
