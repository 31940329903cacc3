package model

import (
	"encoding/json"
	"time"
)

// RecordKind classifies a single punch within a user's day. The integer
// values are the wire codes expected by the remote API and must not change.
type RecordKind int

const (
	RecordCheckOut     RecordKind = 0
	RecordCheckIn      RecordKind = 1
	RecordIntermediate RecordKind = 2
)

// AttendanceStatus marks whether a user's day has both a check-in and a
// check-out. Integer values are the remote API's wire codes.
type AttendanceStatus int

const (
	StatusIncomplete AttendanceStatus = 0
	StatusComplete   AttendanceStatus = 1
)

// Punch is one raw scan event read from the device. The device gives no
// uniqueness guarantee, so duplicates are possible.
type Punch struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ClassifiedRecord is a punch with its position-derived kind. Hour is the
// time of day formatted HH:MM:SS.
type ClassifiedRecord struct {
	Hour string     `json:"hour"`
	Type RecordKind `json:"type"`
}

// UserDailyAttendance aggregates one user's classified records for a single
// date. TotalHours is the first-to-last span formatted with two decimals.
type UserDailyAttendance struct {
	UserID     string             `json:"user_id"`
	UserName   string             `json:"user_name"`
	Records    []ClassifiedRecord `json:"records"`
	TotalHours string             `json:"total_hours"`
	Status     AttendanceStatus   `json:"status"`
}

// AttendanceDocument is the persisted aggregate of one device's attendance
// for one date. It is the unit of durability and of delivery.
type AttendanceDocument struct {
	ID           string                         `json:"id"`
	SerialNumber string                         `json:"serial_number"`
	Date         string                         `json:"date"`
	Users        map[string]UserDailyAttendance `json:"users"`
}

// UserPrivilege is the privilege level reported by the device's user
// directory.
type UserPrivilege string

const (
	PrivilegeAdmin UserPrivilege = "Admin"
	PrivilegeUser  UserPrivilege = "User"
)

// UserInfo is one entry of the device's user directory.
type UserInfo struct {
	UserID    string        `json:"user_id"`
	Name      string        `json:"name"`
	Privilege UserPrivilege `json:"privilege"`
}

// NetworkParams holds the device's reported network identity.
type NetworkParams struct {
	IP      string `json:"ip"`
	Gateway string `json:"gateway"`
}

// DeviceInfo is the device identity payload reported to the remote API once
// per process lifetime.
type DeviceInfo struct {
	DeviceID     string        `json:"device_id"`
	DeviceName   string        `json:"device_name"`
	SerialNumber string        `json:"serial_number"`
	MACAddress   string        `json:"mac_address"`
	Network      NetworkParams `json:"network"`
}

// PayloadKind distinguishes what a transmission carries.
type PayloadKind string

const (
	PayloadAttendance PayloadKind = "ATTENDANCE"
	PayloadDevice     PayloadKind = "DEVICE"
)

// TransmissionStatus is the delivery state of a queued payload.
type TransmissionStatus string

const (
	StatusSendPending   TransmissionStatus = "PENDING"
	StatusSendDelivered TransmissionStatus = "DELIVERED"
	StatusSendExpired   TransmissionStatus = "EXPIRED"
)

// PendingTransmission is one durable row of the retry queue. It survives
// process restarts and is removed only on delivery or expiry.
type PendingTransmission struct {
	ID         int64              `json:"id"`
	Kind       PayloadKind        `json:"kind"`
	Payload    json.RawMessage    `json:"payload"`
	Attempts   int                `json:"attempts"`
	Status     TransmissionStatus `json:"status"`
	EnqueuedAt time.Time          `json:"enqueuedAt"`
}
