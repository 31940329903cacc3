package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeclock.agent/internal/core/model"
)

func userDay(records []model.ClassifiedRecord, hours string, status model.AttendanceStatus) model.UserDailyAttendance {
	return model.UserDailyAttendance{
		UserID:     "1",
		UserName:   "Alice",
		Records:    records,
		TotalHours: hours,
		Status:     status,
	}
}

func docWith(users map[string]model.UserDailyAttendance) model.AttendanceDocument {
	return model.AttendanceDocument{
		ID:           "doc-1",
		SerialNumber: "SN123",
		Date:         "2026-03-09",
		Users:        users,
	}
}

func TestMergeDocuments_EmptyExistingReturnsIncoming(t *testing.T) {
	incoming := docWith(map[string]model.UserDailyAttendance{
		"1": userDay([]model.ClassifiedRecord{{Hour: "08:00:00", Type: model.RecordCheckIn}}, "0.00", model.StatusIncomplete),
	})

	got := MergeDocuments(model.AttendanceDocument{}, incoming)
	assert.Equal(t, incoming, got)
}

func TestMergeDocuments_NewUserAdoptedVerbatim(t *testing.T) {
	existing := docWith(map[string]model.UserDailyAttendance{
		"1": userDay([]model.ClassifiedRecord{{Hour: "08:00:00", Type: model.RecordCheckIn}}, "0.00", model.StatusIncomplete),
	})
	newcomer := model.UserDailyAttendance{
		UserID:     "2",
		UserName:   "Bob",
		Records:    []model.ClassifiedRecord{{Hour: "09:00:00", Type: model.RecordCheckIn}},
		TotalHours: "0.00",
		Status:     model.StatusIncomplete,
	}
	incoming := docWith(map[string]model.UserDailyAttendance{"2": newcomer})

	got := MergeDocuments(existing, incoming)

	require.Len(t, got.Users, 2)
	assert.Equal(t, newcomer, got.Users["2"])
	assert.Equal(t, existing.Users["1"], got.Users["1"])
}

func TestMergeDocuments_HoursRecomputedNotSummed(t *testing.T) {
	existing := docWith(map[string]model.UserDailyAttendance{
		"1": userDay([]model.ClassifiedRecord{
			{Hour: "08:00:00", Type: model.RecordCheckIn},
			{Hour: "17:00:00", Type: model.RecordCheckOut},
		}, "9.00", model.StatusComplete),
	})
	incoming := docWith(map[string]model.UserDailyAttendance{
		"1": userDay([]model.ClassifiedRecord{
			{Hour: "08:00:00", Type: model.RecordCheckIn},
			{Hour: "12:00:00", Type: model.RecordIntermediate},
			{Hour: "17:00:00", Type: model.RecordCheckOut},
		}, "9.00", model.StatusComplete),
	})

	got := MergeDocuments(existing, incoming)

	user := got.Users["1"]
	require.Len(t, user.Records, 3)
	assert.Equal(t, "9.00", user.TotalHours, "hours must come from the span, not an additive sum")
	assert.Equal(t, model.StatusComplete, user.Status)
}

func TestMergeDocuments_Idempotent(t *testing.T) {
	incoming := docWith(map[string]model.UserDailyAttendance{
		"1": userDay([]model.ClassifiedRecord{
			{Hour: "08:00:00", Type: model.RecordCheckIn},
			{Hour: "17:00:00", Type: model.RecordCheckOut},
		}, "9.00", model.StatusComplete),
	})

	once := MergeDocuments(model.AttendanceDocument{}, incoming)
	twice := MergeDocuments(once, incoming)
	thrice := MergeDocuments(twice, incoming)

	assert.Equal(t, once, twice)
	assert.Equal(t, twice, thrice)
	assert.Equal(t, "9.00", thrice.Users["1"].TotalHours)
	assert.Len(t, thrice.Users["1"].Records, 2)
}

func TestMergeDocuments_StructuralEqualityKeepsDistinctKinds(t *testing.T) {
	existing := docWith(map[string]model.UserDailyAttendance{
		"1": userDay([]model.ClassifiedRecord{
			{Hour: "08:00:00", Type: model.RecordCheckIn},
			{Hour: "12:00:00", Type: model.RecordCheckOut},
		}, "4.00", model.StatusComplete),
	})
	incoming := docWith(map[string]model.UserDailyAttendance{
		"1": userDay([]model.ClassifiedRecord{
			{Hour: "08:00:00", Type: model.RecordCheckIn},
			{Hour: "12:00:00", Type: model.RecordIntermediate},
			{Hour: "18:00:00", Type: model.RecordCheckOut},
		}, "10.00", model.StatusComplete),
	})

	got := MergeDocuments(existing, incoming)

	user := got.Users["1"]
	// 12:00 appears twice with different kinds: structural equality keeps both.
	require.Len(t, user.Records, 4)
	assert.Equal(t, "10.00", user.TotalHours)
	for i := 1; i < len(user.Records); i++ {
		assert.LessOrEqual(t, user.Records[i-1].Hour, user.Records[i].Hour, "records must stay sorted")
	}
}

func TestMergeDocuments_RecordCountNeverDecreases(t *testing.T) {
	existing := docWith(map[string]model.UserDailyAttendance{
		"1": userDay([]model.ClassifiedRecord{
			{Hour: "08:00:00", Type: model.RecordCheckIn},
			{Hour: "12:00:00", Type: model.RecordIntermediate},
			{Hour: "17:00:00", Type: model.RecordCheckOut},
		}, "9.00", model.StatusComplete),
	})
	// Device resends only the latest events.
	incoming := docWith(map[string]model.UserDailyAttendance{
		"1": userDay([]model.ClassifiedRecord{
			{Hour: "17:00:00", Type: model.RecordCheckOut},
		}, "0.00", model.StatusIncomplete),
	})

	got := MergeDocuments(existing, incoming)
	assert.Len(t, got.Users["1"].Records, 3)
	assert.Equal(t, "9.00", got.Users["1"].TotalHours)
	assert.Equal(t, model.StatusComplete, got.Users["1"].Status)
}
