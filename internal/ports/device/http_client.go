package device

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"timeclock.agent/internal/core/model"
)

// HTTPConnector talks to the time clock through its HTTP bridge. Opening a
// session disables the device so punches cannot mutate mid-read; closing it
// re-enables the device.
type HTTPConnector struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

func NewHTTPConnector(baseURL string, timeout time.Duration, log zerolog.Logger) *HTTPConnector {
	return &HTTPConnector{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		log:     log,
	}
}

// Connect opens a session, retrying the initial handshake under capped
// exponential backoff. Device links over flaky LANs routinely drop the
// first attempt.
func (c *HTTPConnector) Connect(ctx context.Context) (Session, error) {
	operation := func() (struct{}, error) {
		return struct{}{}, c.post(ctx, "/device/disable")
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("opening device session: %w", err)
	}

	c.log.Debug().Str("device", c.baseURL).Msg("Device session opened")
	return &httpSession{conn: c}, nil
}

func (c *HTTPConnector) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating device request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling device bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("device bridge returned status %d for %s", resp.StatusCode, path)
	}
	return nil
}

func (c *HTTPConnector) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating device request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling device bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("device bridge returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding device response for %s: %w", path, err)
	}
	return nil
}

type httpSession struct {
	conn *HTTPConnector
}

func (s *httpSession) Info(ctx context.Context) (model.DeviceInfo, error) {
	var info model.DeviceInfo
	if err := s.conn.getJSON(ctx, "/info", &info); err != nil {
		return model.DeviceInfo{}, err
	}
	if info.DeviceID == "" {
		info.DeviceID = info.SerialNumber
	}
	return info, nil
}

func (s *httpSession) Users(ctx context.Context) ([]model.UserInfo, error) {
	var users []model.UserInfo
	if err := s.conn.getJSON(ctx, "/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *httpSession) Punches(ctx context.Context) ([]model.Punch, error) {
	var punches []model.Punch
	if err := s.conn.getJSON(ctx, "/attendance", &punches); err != nil {
		return nil, err
	}
	return punches, nil
}

// Close re-enables the device. Runs on a fresh context so shutdown still
// releases a device acquired under a canceled one.
func (s *httpSession) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.conn.client.Timeout)
	defer cancel()

	if err := s.conn.post(ctx, "/device/enable"); err != nil {
		s.conn.log.Error().Err(err).Msg("Failed to re-enable device on session close")
		return err
	}
	s.conn.log.Debug().Msg("Device session closed")
	return nil
}
