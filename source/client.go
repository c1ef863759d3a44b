// Package source implements the client for the upstream signals API: bearer
// authentication plus paginated signal retrieval.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-signal-relay/core"
	"github.com/goliatone/go-signal-relay/transport"
)

const defaultRequestTimeout = 30 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type pageLinks struct {
	Next *struct {
		Href *string `json:"href"`
	} `json:"next"`
}

type pageResponse struct {
	Results []map[string]any `json:"results"`
	Links   pageLinks        `json:"_links"`
}

// Client talks to the upstream signals API. Credentials are read through
// the Env lookup at call time so tests can substitute them per call.
type Client struct {
	Transport core.TransportAdapter
	Env       core.Env
	Config    core.Config
	Logger    core.Logger
	Timeout   time.Duration
}

func NewClient(adapter core.TransportAdapter, env core.Env, cfg core.Config, logger core.Logger) *Client {
	if adapter == nil {
		adapter = transport.NewRetryingHTTPAdapter(nil)
	}
	return &Client{
		Transport: adapter,
		Env:       env,
		Config:    cfg,
		Logger:    glog.Ensure(logger),
		Timeout:   defaultRequestTimeout,
	}
}

// BaseURL prefers the SIGNALS_API_BASE environment override, then the
// configured source base URL.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	if override := c.Env.Get(core.EnvSignalsAPIBase); override != "" {
		return strings.TrimSuffix(override, "/")
	}
	return strings.TrimSuffix(strings.TrimSpace(c.Config.Source.BaseURL), "/")
}

func (c *Client) FirstPageURL() string {
	if c == nil {
		return ""
	}
	cfg := c.Config
	cfg.Source.BaseURL = c.BaseURL()
	return cfg.FirstPageURL()
}

// Authenticate exchanges the configured username/password for a bearer
// token. Every failure here is fatal to the calling run: a rejected
// credential fails identically on every page, so there is nothing to retry
// per page.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if c == nil || c.Transport == nil {
		return "", fmt.Errorf("source: client requires a transport adapter")
	}
	user := c.Env.Get(core.EnvSignalsUser)
	password := c.Env.Get(core.EnvSignalsPassword)
	if user == "" || password == "" {
		return "", fmt.Errorf("source: %s and %s are not configured: %w",
			core.EnvSignalsUser, core.EnvSignalsPassword, core.ErrServiceNotConfigured)
	}

	body, err := json.Marshal(map[string]string{
		"username": user,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("source: encode credentials: %w", err)
	}

	response, err := c.Transport.Do(ctx, core.TransportRequest{
		Method:  http.MethodPost,
		URL:     c.BaseURL() + "/oauth2/token/",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
		Timeout: c.timeout(),
	})
	if err != nil {
		return "", fmt.Errorf("source: authenticate: %w", err)
	}
	if response.StatusCode == http.StatusForbidden || response.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("source: authentication failed with status %d: %w",
			response.StatusCode, core.ErrSourceAuthFailed)
	}
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("source: authenticate returned status %d", response.StatusCode)
	}

	var token tokenResponse
	if err := json.Unmarshal(response.Body, &token); err != nil {
		return "", fmt.Errorf("source: parse token response: %w", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return "", fmt.Errorf("source: authentication returned no token: %w", core.ErrSourceAuthFailed)
	}
	return strings.TrimSpace(token.AccessToken), nil
}

// FetchPage retrieves one page of signals. The returned page carries a nil
// Next on the last page.
func (c *Client) FetchPage(ctx context.Context, pageURL string, token string) (core.SignalPage, error) {
	if c == nil || c.Transport == nil {
		return core.SignalPage{}, fmt.Errorf("source: client requires a transport adapter")
	}
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return core.SignalPage{}, fmt.Errorf("source: page url is required")
	}

	response, err := c.Transport.Do(ctx, core.TransportRequest{
		Method: http.MethodGet,
		URL:    pageURL,
		Headers: map[string]string{
			"Authorization": "Bearer " + strings.TrimSpace(token),
			"Accept":        "application/json",
		},
		Timeout: c.timeout(),
	})
	if err != nil {
		return core.SignalPage{}, fmt.Errorf("source: fetch page: %w", err)
	}
	if response.StatusCode == http.StatusForbidden || response.StatusCode == http.StatusUnauthorized {
		return core.SignalPage{}, fmt.Errorf("source: page fetch rejected with status %d: %w",
			response.StatusCode, core.ErrSourceAuthFailed)
	}
	if response.StatusCode != http.StatusOK {
		return core.SignalPage{}, fmt.Errorf("source: page fetch returned status %d", response.StatusCode)
	}

	var page pageResponse
	if err := json.Unmarshal(response.Body, &page); err != nil {
		return core.SignalPage{}, fmt.Errorf("source: parse page response: %w", err)
	}

	signals := make([]core.Signal, 0, len(page.Results))
	for _, result := range page.Results {
		signals = append(signals, core.Signal(result))
	}

	var next *string
	if page.Links.Next != nil && page.Links.Next.Href != nil {
		href := strings.TrimSpace(*page.Links.Next.Href)
		if href != "" {
			next = &href
		}
	}

	c.Logger.Info("fetched signal page", "url", pageURL, "signals", len(signals), "has_next", next != nil)
	return core.SignalPage{Signals: signals, Next: next}, nil
}

func (c *Client) timeout() time.Duration {
	if c != nil && c.Timeout > 0 {
		return c.Timeout
	}
	return defaultRequestTimeout
}

var _ core.SignalSource = (*Client)(nil)
