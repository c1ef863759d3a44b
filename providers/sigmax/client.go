package sigmax

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-signal-relay/core"
	"github.com/goliatone/go-signal-relay/transport"
)

const defaultRequestTimeout = 30 * time.Second

// Client posts StUF envelopes to the configured CityControl endpoint. The
// endpoint and token are read from the environment on every call so a
// misconfigured deployment reports ServiceNotConfigured instead of caching
// stale settings at startup.
type Client struct {
	Transport core.TransportAdapter
	Env       core.Env
	Logger    core.Logger
	Timeout   time.Duration
}

func NewClient(adapter core.TransportAdapter, env core.Env, logger core.Logger) *Client {
	if adapter == nil {
		adapter = transport.NewRetryingHTTPAdapter(nil)
	}
	return &Client{
		Transport: adapter,
		Env:       env,
		Logger:    glog.Ensure(logger),
		Timeout:   defaultRequestTimeout,
	}
}

// Send posts one envelope under the given SOAP action. Missing settings
// wrap core.ErrServiceNotConfigured; a non-200 response is an error since
// CityControl acknowledges accepted messages with HTTP 200.
func (c *Client) Send(ctx context.Context, soapAction string, envelope string) error {
	if c == nil || c.Transport == nil {
		return fmt.Errorf("sigmax: client requires a transport adapter")
	}

	server := c.Env.Get(core.EnvSigmaxServer)
	token := c.Env.Get(core.EnvSigmaxAuthToken)
	if server == "" || token == "" {
		return fmt.Errorf("sigmax: %s or %s not configured: %w",
			core.EnvSigmaxAuthToken, core.EnvSigmaxServer, core.ErrServiceNotConfigured)
	}

	body := []byte(envelope)
	response, err := c.Transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    server,
		Headers: map[string]string{
			"SOAPAction":     strings.TrimSpace(soapAction),
			"Content-Type":   "text/xml; charset=UTF-8",
			"Authorization":  "Basic " + token,
			"Content-Length": strconv.Itoa(len(body)),
		},
		Body:    body,
		Timeout: c.timeout(),
	})
	if err != nil {
		return fmt.Errorf("sigmax: send message: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("sigmax: server rejected message with status %d", response.StatusCode)
	}

	c.logger().Info("message accepted", "soap_action", soapAction, "bytes", len(body))
	return nil
}

// CreateCase encodes and sends the case-creation message for a signal.
func (c *Client) CreateCase(ctx context.Context, signal core.Signal) error {
	envelope, err := EncodeCaseCreation(signal)
	if err != nil {
		return err
	}
	return c.Send(ctx, SOAPActionCreateCase, envelope)
}

// AttachDocument encodes and sends one document-attachment message.
func (c *Client) AttachDocument(ctx context.Context, signalID string, doc Document, sentAt time.Time) error {
	envelope, err := EncodeDocumentAttachment(signalID, doc, sentAt)
	if err != nil {
		return err
	}
	return c.Send(ctx, SOAPActionAddDocument, envelope)
}

func (c *Client) timeout() time.Duration {
	if c != nil && c.Timeout > 0 {
		return c.Timeout
	}
	return defaultRequestTimeout
}

func (c *Client) logger() core.Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return glog.Ensure(nil)
}
