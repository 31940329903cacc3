package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeclock.agent/internal/core/model"
)

func punchAt(userID string, hour, min int) model.Punch {
	return model.Punch{
		UserID:    userID,
		Timestamp: time.Date(2026, 3, 9, hour, min, 0, 0, time.UTC),
	}
}

func TestClassifyDay_FullDay(t *testing.T) {
	punches := []model.Punch{
		punchAt("42", 8, 0),
		punchAt("42", 12, 0),
		punchAt("42", 13, 0),
		punchAt("42", 17, 0),
	}

	got := ClassifyDay(punches)

	require.Len(t, got.Records, 4)
	assert.Equal(t, model.ClassifiedRecord{Hour: "08:00:00", Type: model.RecordCheckIn}, got.Records[0])
	assert.Equal(t, model.ClassifiedRecord{Hour: "12:00:00", Type: model.RecordIntermediate}, got.Records[1])
	assert.Equal(t, model.ClassifiedRecord{Hour: "13:00:00", Type: model.RecordIntermediate}, got.Records[2])
	assert.Equal(t, model.ClassifiedRecord{Hour: "17:00:00", Type: model.RecordCheckOut}, got.Records[3])
	assert.Equal(t, "9.00", got.TotalHours)
	assert.Equal(t, model.StatusComplete, got.Status)
	assert.Equal(t, "42", got.UserID)
}

func TestClassifyDay_UnsortedInput(t *testing.T) {
	punches := []model.Punch{
		punchAt("7", 17, 0),
		punchAt("7", 8, 0),
		punchAt("7", 12, 30),
	}

	got := ClassifyDay(punches)

	require.Len(t, got.Records, 3)
	assert.Equal(t, "08:00:00", got.Records[0].Hour)
	assert.Equal(t, model.RecordCheckIn, got.Records[0].Type)
	assert.Equal(t, "17:00:00", got.Records[2].Hour)
	assert.Equal(t, model.RecordCheckOut, got.Records[2].Type)
	assert.Equal(t, "9.00", got.TotalHours)
}

func TestClassifyDay_SinglePunch(t *testing.T) {
	got := ClassifyDay([]model.Punch{punchAt("7", 8, 15)})

	require.Len(t, got.Records, 1)
	assert.Equal(t, model.RecordCheckIn, got.Records[0].Type)
	assert.Equal(t, "0.00", got.TotalHours)
	assert.Equal(t, model.StatusIncomplete, got.Status)
}

func TestClassifyDay_DuplicateTimestampsCollapse(t *testing.T) {
	punches := []model.Punch{
		punchAt("7", 8, 0),
		punchAt("7", 8, 0),
		punchAt("7", 17, 0),
	}

	got := ClassifyDay(punches)

	// The double scan must not produce a fake intermediate record.
	require.Len(t, got.Records, 2)
	assert.Equal(t, model.RecordCheckIn, got.Records[0].Type)
	assert.Equal(t, model.RecordCheckOut, got.Records[1].Type)
	assert.Equal(t, "9.00", got.TotalHours)
}

func TestClassifyDay_Empty(t *testing.T) {
	got := ClassifyDay(nil)
	assert.Empty(t, got.Records)
	assert.Empty(t, got.UserID)
}

func TestClassifyDay_FractionalHours(t *testing.T) {
	punches := []model.Punch{
		punchAt("7", 8, 0),
		punchAt("7", 16, 45),
	}

	got := ClassifyDay(punches)
	assert.Equal(t, "8.75", got.TotalHours)
	assert.Equal(t, model.StatusComplete, got.Status)
}
