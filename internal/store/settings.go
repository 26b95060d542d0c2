package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Well-known settings keys. The security secret and point value are single
// documents in the original data model; here they are rows in one
// key/value table.
const (
	KeyPointValue     = "dicipoints.point_value"
	KeyMasterPassword = "dicipoints.master_password"
)

// DefaultPointValue is the EUR value of one DiciPoint used when the setting
// is absent or unreadable.
const DefaultPointValue = 0.10

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Lookup returns the value for key and whether it was present.
func (s *SettingsStore) Lookup(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM system_settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO system_settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// PointValue returns the configured EUR value of one point, falling back to
// the default when unset or unparsable.
func (s *SettingsStore) PointValue() float64 {
	raw, ok, err := s.Lookup(KeyPointValue)
	if err != nil || !ok {
		return DefaultPointValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return DefaultPointValue
	}
	return v
}

func (s *SettingsStore) SetPointValue(v float64) error {
	return s.Set(KeyPointValue, strconv.FormatFloat(v, 'f', -1, 64))
}
