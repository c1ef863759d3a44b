package signalrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-signal-relay/core"
)

func newUpstreamServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-e2e"})
	})
	mux.HandleFunc("/signal/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"signal_id": "e2e-1", "created_at": "2024-03-01T10:00:00Z"},
				{"signal_id": "e2e-2", "created_at": "2024-03-01T10:05:00Z"},
			},
			"_links": map[string]any{"next": map[string]any{"href": nil}},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRelay_EndToEndLogOnlyRun(t *testing.T) {
	upstream := newUpstreamServer(t)

	cfg := core.DefaultConfig()
	cfg.Source.BaseURL = upstream.URL
	cfg.ActiveServices = []string{"signals"}

	env := core.MapEnv(map[string]string{
		core.EnvSignalsUser:     "ingest",
		core.EnvSignalsPassword: "secret",
	})
	dbCfg := DatabaseConfig{
		Driver: "sqlite3",
		DSN: fmt.Sprintf("file:relay-e2e-%d?mode=memory&cache=shared",
			time.Now().UnixNano()),
	}

	relay, err := New(context.Background(), cfg, dbCfg, env, nil)
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	defer func() { _ = relay.Close() }()

	if err := relay.Health.Check(context.Background()); err != nil {
		t.Fatalf("health check: %v", err)
	}

	report, err := relay.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Seen != 2 || report.Delivered != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	entry, err := relay.Factory.DeliveryLogStore().Get(context.Background(), "e2e-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if !entry.IsSent || entry.HandlerName != core.LogOnlyHandlerName {
		t.Fatalf("expected log-only terminal entry, got %+v", entry)
	}

	// Terminal entries stay untouched on the next pass.
	report, err = relay.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Skipped != 2 || report.Delivered != 0 {
		t.Fatalf("unexpected second run report %+v", report)
	}
}

func TestRelay_UnconfiguredSigmaxKeepsEntriesPending(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token/":
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-e2e"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{{
					"signal_id":  "case-1",
					"created_at": "2024-03-01T10:00:00Z",
					"location": map[string]any{
						"address": map[string]any{"openbare_ruimte": "Amstel"},
					},
				}},
				"_links": map[string]any{"next": map[string]any{"href": nil}},
			})
		}
	}))
	defer upstream.Close()

	cfg := core.DefaultConfig()
	cfg.Source.BaseURL = upstream.URL

	env := core.MapEnv(map[string]string{
		core.EnvSignalsUser:     "ingest",
		core.EnvSignalsPassword: "secret",
	})
	dbCfg := DatabaseConfig{
		Driver: "sqlite3",
		DSN: fmt.Sprintf("file:relay-e2e-pending-%d?mode=memory&cache=shared",
			time.Now().UnixNano()),
	}

	relay, err := New(context.Background(), cfg, dbCfg, env, nil)
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	defer func() { _ = relay.Close() }()

	report, err := relay.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Failed != 1 || report.Delivered != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	entry, err := relay.Factory.DeliveryLogStore().Get(context.Background(), "case-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.IsSent {
		t.Fatalf("unconfigured delivery must stay pending: %+v", entry)
	}
	if entry.HandlerName != "sigmax" || entry.Status != "not configured" {
		t.Fatalf("expected sigmax not-configured outcome, got %+v", entry)
	}
}

func TestOpenDatabase_RejectsUnknownDriver(t *testing.T) {
	if _, err := OpenDatabase(context.Background(), DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
