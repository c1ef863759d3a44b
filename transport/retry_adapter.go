// Package transport contains the outbound HTTP adapter shared by the
// upstream source client and the external delivery clients.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-signal-relay/core"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

const defaultMaxRetries = 5
const defaultRetryBaseDelay = 100 * time.Millisecond

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryingHTTPAdapter executes HTTP exchanges and retries server-side
// failure statuses (500, 502, 503, 504) up to MaxRetries times with short,
// increasing backoff. Client errors (4xx) are returned immediately since
// retrying cannot change the outcome.
type RetryingHTTPAdapter struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
	MaxRetries           int
	RetryBaseDelay       time.Duration

	// Sleep is swapped in tests to avoid waiting out backoff delays.
	Sleep func(time.Duration)
}

func NewRetryingHTTPAdapter(client HTTPDoer) *RetryingHTTPAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	return &RetryingHTTPAdapter{
		Client:               client,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
		MaxRetries:           defaultMaxRetries,
		RetryBaseDelay:       defaultRetryBaseDelay,
		Sleep:                time.Sleep,
	}
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (a *RetryingHTTPAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.Client == nil {
		return core.TransportResponse{}, transportError(
			"transport: adapter requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	parsedURL, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || parsedURL.String() == "" {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			http.StatusBadRequest,
			map[string]any{"url": strings.TrimSpace(req.URL)},
		)
	}

	requestCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	attempts := a.maxRetries() + 1
	var response core.TransportResponse
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			a.sleep(a.retryDelay(attempt))
		}
		response, lastErr = a.doOnce(requestCtx, method, parsedURL.String(), req)
		if lastErr != nil {
			// network-level failures are retried like 5xx responses
			if requestCtx.Err() != nil {
				return core.TransportResponse{}, lastErr
			}
			continue
		}
		if !retryableStatus(response.StatusCode) {
			return response, nil
		}
	}
	if lastErr != nil {
		return core.TransportResponse{}, lastErr
	}
	return response, transportError(
		fmt.Sprintf("transport: server error %d persisted after %d attempts", response.StatusCode, attempts),
		goerrors.CategoryExternal,
		http.StatusBadGateway,
		map[string]any{"status_code": response.StatusCode, "attempts": attempts},
	)
}

func (a *RetryingHTTPAdapter) doOnce(
	ctx context.Context,
	method string,
	requestURL string,
	req core.TransportRequest,
) (core.TransportResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, requestURL, bytes.NewReader(req.Body))
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "url": requestURL},
		)
	}
	for key, value := range a.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	startedAt := time.Now().UTC()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: execute http request",
			http.StatusBadGateway,
			map[string]any{"method": method, "url": requestURL},
		)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := a.responseBodyLimit()
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode},
		)
	}
	if int64(len(body)) > maxBodyBytes {
		return core.TransportResponse{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode, "response_limit_b": maxBodyBytes},
		)
	}

	return core.TransportResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
		Metadata: map[string]any{
			"duration_ms": time.Since(startedAt).Milliseconds(),
		},
	}, nil
}

func (a *RetryingHTTPAdapter) maxRetries() int {
	if a != nil && a.MaxRetries > 0 {
		return a.MaxRetries
	}
	return defaultMaxRetries
}

func (a *RetryingHTTPAdapter) retryDelay(attempt int) time.Duration {
	base := a.RetryBaseDelay
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	return time.Duration(attempt) * base
}

func (a *RetryingHTTPAdapter) responseBodyLimit() int64 {
	if a != nil && a.MaxResponseBodyBytes > 0 {
		return a.MaxResponseBodyBytes
	}
	return defaultResponseBodyLimit
}

func (a *RetryingHTTPAdapter) sleep(delay time.Duration) {
	if a != nil && a.Sleep != nil {
		a.Sleep(delay)
		return
	}
	time.Sleep(delay)
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ core.TransportAdapter = (*RetryingHTTPAdapter)(nil)
