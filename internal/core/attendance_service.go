package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"timeclock.agent/internal/core/model"
	"timeclock.agent/internal/ports/device"
	"timeclock.agent/internal/ports/remoteapi"
	"timeclock.agent/internal/store"
)

// ErrInvalidDeviceIdentity aborts the current cycle when the device reports
// incomplete identity fields.
var ErrInvalidDeviceIdentity = errors.New("device reported invalid identity fields")

// TransmissionQueue is the durable fallback for payloads that could not be
// delivered inline.
type TransmissionQueue interface {
	Enqueue(ctx context.Context, kind model.PayloadKind, payload json.RawMessage) (int64, error)
}

// CycleStatus is a snapshot of the last reconciliation cycle, exposed on
// the status endpoint.
type CycleStatus struct {
	LastRun     time.Time `json:"last_run"`
	LastOutcome string    `json:"last_outcome"`
}

// AttendanceService runs the reconciliation-and-delivery pipeline: fetch
// punches from the device, classify them, merge with the persisted document
// for the day, save, and deliver. Failed deliveries land in the durable
// queue; the service itself never retries sends.
type AttendanceService struct {
	connector device.Connector
	documents store.DocumentStore
	queue     TransmissionQueue
	api       remoteapi.Client
	builder   *DocumentBuilder
	log       zerolog.Logger

	mu             sync.Mutex
	deviceInfoSent bool
	status         CycleStatus
}

func NewAttendanceService(connector device.Connector, documents store.DocumentStore, queue TransmissionQueue, api remoteapi.Client, log zerolog.Logger) *AttendanceService {
	return &AttendanceService{
		connector: connector,
		documents: documents,
		queue:     queue,
		api:       api,
		builder:   NewDocumentBuilder(log),
		log:       log,
	}
}

// RunCycle executes one full reconciliation pass for the given date.
// Connection and delivery failures are degraded, not fatal: the process
// keeps running and the queue guarantees eventual delivery.
func (s *AttendanceService) RunCycle(ctx context.Context, date string) error {
	ctx, span := otel.Tracer("attendance").Start(ctx, "reconciliation_cycle")
	defer span.End()
	span.SetAttributes(attribute.String("app.date", date))

	err := s.runCycle(ctx, date)
	s.recordOutcome(err)
	return err
}

func (s *AttendanceService) runCycle(ctx context.Context, date string) error {
	var (
		info    model.DeviceInfo
		users   []model.UserInfo
		punches []model.Punch
	)

	err := device.WithSession(ctx, s.connector, func(session device.Session) error {
		var err error
		if info, err = session.Info(ctx); err != nil {
			return fmt.Errorf("fetching device info: %w", err)
		}
		if err = validateDeviceInfo(info); err != nil {
			return err
		}
		if users, err = session.Users(ctx); err != nil {
			return fmt.Errorf("fetching user directory: %w", err)
		}
		if punches, err = session.Punches(ctx); err != nil {
			return fmt.Errorf("fetching punches: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.reportDeviceInfoOnce(ctx, info)

	punchesByUser := groupByUser(punches, date)
	if len(punchesByUser) == 0 {
		s.log.Info().Str("date", date).Msg("No punches for the day")
		return nil
	}

	directory := make(map[string]model.UserInfo, len(users))
	for _, u := range users {
		directory[u.UserID] = u
	}

	incoming := s.builder.Build(info.SerialNumber, date, directory, punchesByUser)

	existing, _, err := s.documents.Load(date)
	if err != nil {
		return err
	}
	merged := MergeDocuments(existing, incoming)

	if err := s.documents.Save(merged); err != nil {
		return err
	}
	s.log.Info().Str("date", date).Int("users", len(merged.Users)).Msg("Attendance document reconciled")

	s.deliver(ctx, model.PayloadAttendance, merged)
	return nil
}

// deliver attempts one inline send and falls back to the durable queue.
// From there the retry loop is the only delivery authority, so the same
// payload is never raced by two senders.
func (s *AttendanceService) deliver(ctx context.Context, kind model.PayloadKind, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to encode payload")
		return
	}

	sendErr := s.api.Send(ctx, kind, body)
	if sendErr == nil {
		s.log.Info().Str("kind", string(kind)).Msg("Payload delivered")
		return
	}
	s.log.Warn().Err(sendErr).Str("kind", string(kind)).Msg("Inline delivery failed, queueing for retry")

	if _, err := s.queue.Enqueue(ctx, kind, body); err != nil {
		s.log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to enqueue payload")
	}
}

// reportDeviceInfoOnce snapshots and delivers the device identity the first
// time a cycle completes a device read. Later cycles skip it.
func (s *AttendanceService) reportDeviceInfoOnce(ctx context.Context, info model.DeviceInfo) {
	s.mu.Lock()
	alreadySent := s.deviceInfoSent
	s.mu.Unlock()
	if alreadySent {
		return
	}

	if err := s.documents.SaveDeviceInfo(info); err != nil {
		s.log.Error().Err(err).Msg("Failed to snapshot device info")
		return
	}
	s.deliver(ctx, model.PayloadDevice, info)

	s.mu.Lock()
	s.deviceInfoSent = true
	s.mu.Unlock()
}

// Status reports the last cycle outcome for the status endpoint.
func (s *AttendanceService) Status() CycleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *AttendanceService) recordOutcome(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastRun = time.Now()
	if err != nil {
		s.status.LastOutcome = err.Error()
		return
	}
	s.status.LastOutcome = "ok"
}

// validateDeviceInfo enforces the required identity fields. The remote API
// rejects device payloads without them, so an invalid identity aborts the
// cycle before any data is sent.
func validateDeviceInfo(info model.DeviceInfo) error {
	if info.DeviceName == "" || info.SerialNumber == "" || info.MACAddress == "" ||
		info.Network.IP == "" || info.Network.Gateway == "" {
		return ErrInvalidDeviceIdentity
	}
	return nil
}

// groupByUser filters punches to the given date and buckets them per user.
// The device returns its whole log, not just today's.
func groupByUser(punches []model.Punch, date string) map[string][]model.Punch {
	grouped := make(map[string][]model.Punch)
	for _, p := range punches {
		if p.Timestamp.Format("2006-01-02") != date {
			continue
		}
		grouped[p.UserID] = append(grouped[p.UserID], p)
	}
	return grouped
}
