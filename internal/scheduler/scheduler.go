package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"timeclock.agent/internal/ports/timesource"
)

// CycleFunc runs one reconciliation-and-delivery pass for the given date.
type CycleFunc func(ctx context.Context, date string) error

// Scheduler is the daily wall-clock gate. It polls the time source on a
// short interval and triggers the cycle once per matching minute. A
// whole-minute watermark stops the same minute from firing on every poll
// tick, and carries across a switch between network and local time so a
// recovering NTP server cannot double-fire the day.
type Scheduler struct {
	source        timesource.Source
	executionTime string
	pollInterval  time.Duration
	run           CycleFunc
	log           zerolog.Logger

	lastFired string
}

func New(source timesource.Source, executionTime string, pollInterval time.Duration, run CycleFunc, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		source:        source,
		executionTime: executionTime,
		pollInterval:  pollInterval,
		run:           run,
		log:           log,
	}
}

// Run polls until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Str("execution_time", s.executionTime).Dur("poll_interval", s.pollInterval).Msg("Scheduler started")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Scheduler shutting down")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	date, clock, err := s.source.Now(ctx)
	if err != nil {
		// A dead time source never halts the scheduler.
		s.log.Warn().Err(err).Msg("Time source unavailable, will keep polling")
		return
	}

	if clock != s.executionTime {
		return
	}

	watermark := date + " " + clock
	if watermark == s.lastFired {
		return
	}
	s.lastFired = watermark

	s.log.Info().Str("date", date).Str("time", clock).Msg("Scheduled execution triggered")
	if err := s.run(ctx, date); err != nil {
		s.log.Error().Err(err).Str("date", date).Msg("Reconciliation cycle failed")
	}
}
