package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-signal-relay/core"
)

func newTestAdapter(client HTTPDoer) *RetryingHTTPAdapter {
	adapter := NewRetryingHTTPAdapter(client)
	adapter.Sleep = func(time.Duration) {}
	return adapter
}

func TestRetryingHTTPAdapter_RetriesServerErrorsThenSucceeds(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	adapter := newTestAdapter(server.Client())
	response, err := adapter.Do(context.Background(), core.TransportRequest{
		Method: http.MethodPost,
		URL:    server.URL,
		Body:   []byte("payload"),
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", response.StatusCode)
	}
	if hits != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits)
	}
}

func TestRetryingHTTPAdapter_GivesUpAfterRetryBudget(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := newTestAdapter(server.Client())
	if _, err := adapter.Do(context.Background(), core.TransportRequest{
		Method: http.MethodPost,
		URL:    server.URL,
	}); err == nil {
		t.Fatalf("expected persistent 502 to surface as error")
	}
	// initial attempt plus five retries
	if hits != 6 {
		t.Fatalf("expected 6 attempts, got %d", hits)
	}
}

func TestRetryingHTTPAdapter_DoesNotRetryClientErrors(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	adapter := newTestAdapter(server.Client())
	response, err := adapter.Do(context.Background(), core.TransportRequest{
		Method: http.MethodPost,
		URL:    server.URL,
	})
	if err != nil {
		t.Fatalf("4xx must be returned, not raised: %v", err)
	}
	if response.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", response.StatusCode)
	}
	if hits != 1 {
		t.Fatalf("expected exactly 1 attempt for 4xx, got %d", hits)
	}
}

func TestRetryingHTTPAdapter_SetsHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := newTestAdapter(server.Client())
	adapter.DefaultHeaders = map[string]string{"X-Default": "always"}
	if _, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:  http.MethodPost,
		URL:     server.URL,
		Headers: map[string]string{"SOAPAction": "action-uri"},
	}); err != nil {
		t.Fatalf("do: %v", err)
	}
	if got.Get("X-Default") != "always" {
		t.Fatalf("expected default header to be applied")
	}
	if got.Get("SOAPAction") != "action-uri" {
		t.Fatalf("expected request header to be applied")
	}
}

func TestRetryingHTTPAdapter_RejectsEmptyURL(t *testing.T) {
	adapter := newTestAdapter(nil)
	if _, err := adapter.Do(context.Background(), core.TransportRequest{Method: http.MethodGet}); err == nil {
		t.Fatalf("expected empty url to fail")
	}
}
