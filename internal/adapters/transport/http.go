// Package transport contains the sinks that persist dispatched violations.
//
// Every sink implements worker.Transport. Sinks never retry; the caller logs
// and counts failures.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
)

// Default HTTP client settings.
const (
	defaultHTTPTimeout     = 5 * time.Second
	defaultConnectTimeout  = 3 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
	maxErrorBody           = 512
)

// HTTP posts each violation as JSON to a fixed endpoint.
type HTTP struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	logger   logger.Logger
}

// NewHTTP creates an HTTP sink posting to endpoint.
func NewHTTP(endpoint string, opts ...HTTPOption) (*HTTP, error) {
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMissingEndpoint, u.Scheme)
	}

	h := &HTTP{endpoint: endpoint, timeout: defaultHTTPTimeout}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		h.client = newClient(h.timeout)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("transport-http")
	}
	return h, nil
}

func newClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   defaultConnectTimeout,
				KeepAlive: defaultKeepAlive,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     defaultIdleConnTimeout,
			TLSHandshakeTimeout: defaultConnectTimeout,
		},
	}
}

// Name implements worker.Transport.
func (h *HTTP) Name() string { return "http" }

// Submit posts v's payload. Any non-2xx response is an error.
func (h *HTTP) Submit(ctx context.Context, v model.Violation) error { //nolint:gocritic // hugeParam: Violation is immutable and passed by value
	body, err := json.Marshal(v.Payload())
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("post violation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		h.logger.Warn(ctx, "violation endpoint rejected payload",
			logger.Int("status", resp.StatusCode),
			logger.String("kind", v.Kind.String()),
			logger.String("body", string(snippet)),
		)
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
