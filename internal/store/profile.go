package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dicilo-app/dicilo/internal/model"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	err := scanner.Scan(
		&p.UserID, &p.Email, &p.DisplayName, &p.UniqueCode,
		&p.PromoterCode, &p.Referrals, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const profileCols = `user_id, email, display_name, unique_code, promoter_code, referrals, created_at`

func (s *ProfileStore) Create(userID, email, displayName, uniqueCode, promoterCode string) (*model.Profile, error) {
	_, err := s.db.Exec(
		`INSERT INTO private_profiles (user_id, email, display_name, unique_code, promoter_code, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, email, displayName, uniqueCode, promoterCode, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return s.GetByUserID(userID)
}

func (s *ProfileStore) GetByUserID(userID string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM private_profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// GetByEmailAndCode resolves a referrer by exact match of email and unique
// code on the same row. Returns nil when no single profile matches both.
func (s *ProfileStore) GetByEmailAndCode(email, code string) (*model.Profile, error) {
	row := s.db.QueryRow(
		`SELECT `+profileCols+` FROM private_profiles WHERE email = ? AND unique_code = ?`,
		email, code,
	)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by email and code: %w", err)
	}
	return p, nil
}

// SetReferrals replaces the raw referrals JSON array.
func (s *ProfileStore) SetReferrals(userID, referralsJSON string) error {
	_, err := s.db.Exec(
		`UPDATE private_profiles SET referrals = ? WHERE user_id = ?`,
		referralsJSON, userID,
	)
	if err != nil {
		return fmt.Errorf("set referrals: %w", err)
	}
	return nil
}
