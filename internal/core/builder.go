package core

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"timeclock.agent/internal/core/model"
)

// DocumentBuilder assembles per-user classified attendance plus device
// identity into one dated document.
type DocumentBuilder struct {
	log zerolog.Logger
}

func NewDocumentBuilder(log zerolog.Logger) *DocumentBuilder {
	return &DocumentBuilder{log: log}
}

// Build classifies each user's punches and keys them into a fresh document.
// User IDs that appear in punch data but not in the device's user directory
// are skipped: the device keeps reporting fingerprints of deleted users.
func (b *DocumentBuilder) Build(serialNumber, date string, users map[string]model.UserInfo, punchesByUser map[string][]model.Punch) model.AttendanceDocument {
	doc := model.AttendanceDocument{
		ID:           uuid.NewString(),
		SerialNumber: serialNumber,
		Date:         date,
		Users:        make(map[string]model.UserDailyAttendance, len(punchesByUser)),
	}

	for userID, punches := range punchesByUser {
		if len(punches) == 0 {
			continue
		}
		info, ok := users[userID]
		if !ok {
			b.log.Warn().Str("user_id", userID).Msg("Punches for unknown user, skipping")
			continue
		}

		attendance := ClassifyDay(punches)
		attendance.UserName = info.Name
		doc.Users[userID] = attendance
	}

	return doc
}
