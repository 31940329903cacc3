package remoteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"timeclock.agent/internal/core/model"
)

// Client is the outbound port for delivering payloads to the remote API.
type Client interface {
	Send(ctx context.Context, kind model.PayloadKind, payload json.RawMessage) error
}

// Options configures the HTTP client against the remote API.
type Options struct {
	BaseURL        string
	TokenPath      string
	AttendancePath string
	DevicePath     string
	Email          string
	Password       string
	Timeout        time.Duration
}

// HTTPClient sends attendance and device payloads over HTTP with token
// authentication. All sends pass through a circuit breaker so a flapping
// remote endpoint is not hammered on every retry tick.
type HTTPClient struct {
	client *http.Client
	opts   Options
	cb     *gobreaker.CircuitBreaker
	log    zerolog.Logger

	mu    sync.Mutex
	token string
}

func NewHTTPClient(opts Options, log zerolog.Logger) *HTTPClient {
	settings := gobreaker.Settings{
		Name:        "Remote-API",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if failure rate exceeds 50% after at least 10 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		opts: opts,
		cb:   gobreaker.NewCircuitBreaker(settings),
		log:  log,
	}
}

// Send delivers one payload. Success means a 2xx response; everything else,
// including an open circuit breaker, is a retryable error for the caller.
func (c *HTTPClient) Send(ctx context.Context, kind model.PayloadKind, payload json.RawMessage) error {
	var path string
	switch kind {
	case model.PayloadAttendance:
		path = c.opts.AttendancePath
	case model.PayloadDevice:
		path = c.opts.DevicePath
	default:
		return fmt.Errorf("unknown payload kind %q", kind)
	}

	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.put(ctx, path, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		c.log.Warn().Msg("Circuit breaker is open, skipping remote API call")
	}
	return err
}

func (c *HTTPClient) put(ctx context.Context, path string, payload json.RawMessage) error {
	token, err := c.ensureAuthenticated(ctx)
	if err != nil {
		return err
	}

	status, err := c.doPut(ctx, path, token, payload)
	if err != nil {
		return err
	}

	// An expired token gets one re-login before giving up on this attempt.
	if status == http.StatusUnauthorized {
		c.clearToken()
		token, err = c.ensureAuthenticated(ctx)
		if err != nil {
			return err
		}
		status, err = c.doPut(ctx, path, token, payload)
		if err != nil {
			return err
		}
	}

	if status >= 300 {
		return fmt.Errorf("remote api returned status %d for %s", status, path)
	}
	return nil
}

func (c *HTTPClient) doPut(ctx context.Context, path, token string, payload json.RawMessage) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.opts.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("creating remote api request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-TOKEN", token)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling remote api: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// ensureAuthenticated returns the cached token, logging in first if none is
// held.
func (c *HTTPClient) ensureAuthenticated(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+c.opts.TokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("email", c.opts.Email)
	req.Header.Set("password", c.opts.Password)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling login endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var body struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding login response: %w", err)
	}
	if body.Hash == "" {
		return "", errors.New("login response contained no token")
	}

	c.token = body.Hash
	c.log.Debug().Msg("Authenticated against remote API")
	return c.token, nil
}

func (c *HTTPClient) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
