package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"timeclock.agent/internal/core/model"
)

// MergeDocuments combines a freshly built document with the previously
// persisted document for the same date, producing a deduplicated superset.
// The merge is idempotent: records are keyed by their canonical encoding
// (hour plus kind), and total hours are recomputed from the deduplicated
// span rather than summed, so replaying the same incoming data never grows
// the document or inflates hours.
func MergeDocuments(existing, incoming model.AttendanceDocument) model.AttendanceDocument {
	if len(existing.Users) == 0 {
		return incoming
	}

	merged := model.AttendanceDocument{
		ID:           existing.ID,
		SerialNumber: existing.SerialNumber,
		Date:         existing.Date,
		Users:        make(map[string]model.UserDailyAttendance, len(existing.Users)),
	}
	for userID, attendance := range existing.Users {
		merged.Users[userID] = attendance
	}

	for userID, incomingUser := range incoming.Users {
		existingUser, ok := merged.Users[userID]
		if !ok {
			merged.Users[userID] = incomingUser
			continue
		}
		merged.Users[userID] = mergeUser(existingUser, incomingUser)
	}

	return merged
}

// mergeUser appends the incoming records not already present, keeps the
// result sorted by time of day, and rederives hours and status from the
// union.
func mergeUser(existing, incoming model.UserDailyAttendance) model.UserDailyAttendance {
	seen := make(map[string]struct{}, len(existing.Records))
	for _, r := range existing.Records {
		seen[recordKey(r)] = struct{}{}
	}

	records := make([]model.ClassifiedRecord, len(existing.Records))
	copy(records, existing.Records)

	for _, r := range incoming.Records {
		key := recordKey(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		records = append(records, r)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Hour < records[j].Hour
	})

	existing.Records = records
	existing.TotalHours = fmt.Sprintf("%.2f", recordSpanHours(records))
	existing.Status = model.StatusIncomplete
	if len(records) >= 2 {
		existing.Status = model.StatusComplete
	}
	return existing
}

// recordKey is the structural-equality key for deduplication. JSON encoding
// of the record doubles as a canonical serialization since the field set is
// fixed.
func recordKey(r model.ClassifiedRecord) string {
	b, _ := json.Marshal(r)
	return string(b)
}

// recordSpanHours is the first-to-last span of a sorted record sequence,
// in hours. Fewer than two records span nothing.
func recordSpanHours(records []model.ClassifiedRecord) float64 {
	if len(records) < 2 {
		return 0
	}
	first, errFirst := time.Parse("15:04:05", records[0].Hour)
	last, errLast := time.Parse("15:04:05", records[len(records)-1].Hour)
	if errFirst != nil || errLast != nil {
		return 0
	}
	return last.Sub(first).Hours()
}
