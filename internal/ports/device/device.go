package device

import (
	"context"
	"fmt"

	"timeclock.agent/internal/core/model"
)

// Session is one open connection to the time clock. The device is held
// disabled for the session's lifetime, so it must always be closed.
type Session interface {
	Info(ctx context.Context) (model.DeviceInfo, error)
	Users(ctx context.Context) ([]model.UserInfo, error)
	Punches(ctx context.Context) ([]model.Punch, error)
	Close() error
}

// Connector opens sessions against a time clock.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// WithSession runs fn inside a connected session and releases the device on
// every path, including errors, so it is never left disabled.
func WithSession(ctx context.Context, c Connector, fn func(Session) error) error {
	session, err := c.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connecting to device: %w", err)
	}
	defer session.Close()

	return fn(session)
}
