package core

import (
	"fmt"
	"sort"

	"timeclock.agent/internal/core/model"
)

// ClassifyDay turns one user's raw punches for a single day into an ordered,
// typed record sequence. Punches need not arrive sorted; exact-duplicate
// timestamps collapse to the first occurrence so a double scan never shows
// up as a fake intermediate record.
func ClassifyDay(punches []model.Punch) model.UserDailyAttendance {
	if len(punches) == 0 {
		return model.UserDailyAttendance{}
	}

	sorted := make([]model.Punch, len(punches))
	copy(sorted, punches)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	times := make([]model.Punch, 0, len(sorted))
	for _, p := range sorted {
		if len(times) > 0 && p.Timestamp.Equal(times[len(times)-1].Timestamp) {
			continue
		}
		times = append(times, p)
	}

	records := make([]model.ClassifiedRecord, 0, len(times))
	for i, p := range times {
		records = append(records, model.ClassifiedRecord{
			Hour: p.Timestamp.Format("15:04:05"),
			Type: recordKindAt(i, len(times)),
		})
	}

	status := model.StatusIncomplete
	hours := 0.0
	if len(times) >= 2 {
		status = model.StatusComplete
		hours = times[len(times)-1].Timestamp.Sub(times[0].Timestamp).Hours()
	}

	return model.UserDailyAttendance{
		UserID:     sorted[0].UserID,
		Records:    records,
		TotalHours: fmt.Sprintf("%.2f", hours),
		Status:     status,
	}
}

// recordKindAt assigns kinds positionally: first punch of the day is the
// check-in, the last the check-out, everything between is intermediate. A
// single punch is a check-in only.
func recordKindAt(index, total int) model.RecordKind {
	if index == 0 {
		return model.RecordCheckIn
	}
	if index == total-1 {
		return model.RecordCheckOut
	}
	return model.RecordIntermediate
}
