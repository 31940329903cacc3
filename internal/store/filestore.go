package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"timeclock.agent/internal/core/model"
)

// FileStore keeps one JSON file per date under a data directory. Writes go
// to a temp file first and are renamed into place, so a crash mid-write
// leaves the previous document intact.
type FileStore struct {
	dir string
	log zerolog.Logger
}

func NewFileStore(dir string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

// Load reads the persisted document for a date. A missing file is not an
// error: it means this is the first cycle of the day.
func (s *FileStore) Load(date string) (model.AttendanceDocument, bool, error) {
	data, err := os.ReadFile(s.documentPath(date))
	if os.IsNotExist(err) {
		return model.AttendanceDocument{}, false, nil
	}
	if err != nil {
		return model.AttendanceDocument{}, false, fmt.Errorf("reading attendance document: %w", err)
	}

	var doc model.AttendanceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.AttendanceDocument{}, false, fmt.Errorf("decoding attendance document: %w", err)
	}
	return doc, true, nil
}

// Save persists the document for its date, replacing any previous version
// atomically.
func (s *FileStore) Save(doc model.AttendanceDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding attendance document: %w", err)
	}
	return s.writeAtomic(s.documentPath(doc.Date), data)
}

// SaveDeviceInfo snapshots the device identity next to the attendance data.
func (s *FileStore) SaveDeviceInfo(info model.DeviceInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding device info: %w", err)
	}
	name := fmt.Sprintf("device_%s_%s.json", sanitizeFileName(info.DeviceName), time.Now().Format("20060102"))
	return s.writeAtomic(filepath.Join(s.dir, name), data)
}

func (s *FileStore) documentPath(date string) string {
	return filepath.Join(s.dir, "attendance_"+date+".json")
}

// writeAtomic writes to a temp file in the same directory and renames it
// over the target.
func (s *FileStore) writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// sanitizeFileName keeps device names safe to use as file names.
func sanitizeFileName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if clean == "" {
		return "unknown"
	}
	return clean
}
