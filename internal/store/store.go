package store

import "timeclock.agent/internal/core/model"

// DocumentStore persists and retrieves the latest attendance document per
// date. Implementations must never corrupt previously persisted state on a
// failed write.
type DocumentStore interface {
	Load(date string) (model.AttendanceDocument, bool, error)
	Save(doc model.AttendanceDocument) error
	SaveDeviceInfo(info model.DeviceInfo) error
}
