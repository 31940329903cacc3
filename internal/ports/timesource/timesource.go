package timesource

import "context"

// Source supplies the authoritative wall clock for scheduling. Now returns
// the current date as "2006-01-02" and the time of day as "15:04".
type Source interface {
	Now(ctx context.Context) (date string, clock string, err error)
}
