package timesource

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"
	"github.com/rs/zerolog"
)

// NTPSource reads network time and localizes it to the configured zone. An
// unreachable NTP server degrades to the local clock instead of failing:
// the scheduler must keep polling through network outages.
type NTPSource struct {
	server  string
	timeout time.Duration
	loc     *time.Location
	log     zerolog.Logger
}

func NewNTPSource(server, timezone string, timeout time.Duration, log zerolog.Logger) (*NTPSource, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	return &NTPSource{server: server, timeout: timeout, loc: loc, log: log}, nil
}

func (s *NTPSource) Now(ctx context.Context) (string, string, error) {
	now := time.Now()

	resp, err := ntp.QueryWithOptions(s.server, ntp.QueryOptions{Timeout: s.timeout})
	if err != nil {
		s.log.Warn().Err(err).Str("server", s.server).Msg("NTP query failed, falling back to local clock")
	} else {
		now = now.Add(resp.ClockOffset)
	}

	local := now.In(s.loc)
	return local.Format("2006-01-02"), local.Format("15:04"), nil
}
