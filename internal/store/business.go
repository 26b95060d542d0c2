package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dicilo-app/dicilo/internal/model"
)

type BusinessStore struct {
	db *sql.DB
}

func NewBusinessStore(db *sql.DB) *BusinessStore {
	return &BusinessStore{db: db}
}

func scanBusiness(scanner interface{ Scan(...any) error }) (*model.Business, error) {
	var b model.Business
	var categoryID sql.NullString
	var active int

	err := scanner.Scan(
		&b.ID, &b.Name, &b.Slug, &b.Description, &categoryID,
		&b.City, &b.Address, &b.PostalCode, &b.Email, &b.Phone,
		&b.Website, &active, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Active = active != 0
	if categoryID.Valid {
		b.CategoryID = &categoryID.String
	}
	return &b, nil
}

const businessCols = `id, name, slug, description, category_id, city, address, postal_code, email, phone, website, active, created_at, updated_at`

// BusinessInput carries the writeable fields of a business record.
type BusinessInput struct {
	Name        string
	Slug        string
	Description string
	CategoryID  *string
	City        string
	Address     string
	PostalCode  string
	Email       string
	Phone       string
	Website     string
	Active      bool
}

func (s *BusinessStore) Create(in BusinessInput) (*model.Business, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	var active int
	if in.Active {
		active = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO businesses (id, name, slug, description, category_id, city, address, postal_code, email, phone, website, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Name, in.Slug, in.Description, in.CategoryID, in.City, in.Address,
		in.PostalCode, in.Email, in.Phone, in.Website, active, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert business: %w", err)
	}
	return s.GetByID(id)
}

func (s *BusinessStore) GetByID(id string) (*model.Business, error) {
	row := s.db.QueryRow(`SELECT `+businessCols+` FROM businesses WHERE id = ?`, id)
	b, err := scanBusiness(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}
	return b, nil
}

// SearchFilter narrows a listing. Zero values mean "no filter".
type SearchFilter struct {
	Query      string // substring match on name or city
	CategoryID string
	City       string
	ActiveOnly bool
}

// Search lists businesses matching the filter, ordered by name.
func (s *BusinessStore) Search(f SearchFilter) ([]model.Business, error) {
	query := `SELECT ` + businessCols + ` FROM businesses WHERE 1=1`
	var args []any

	if f.Query != "" {
		query += ` AND (name LIKE ? OR city LIKE ?)`
		pattern := "%" + f.Query + "%"
		args = append(args, pattern, pattern)
	}
	if f.CategoryID != "" {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.City != "" {
		query += ` AND city = ?`
		args = append(args, f.City)
	}
	if f.ActiveOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search businesses: %w", err)
	}
	defer rows.Close()

	var businesses []model.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		businesses = append(businesses, *b)
	}
	return businesses, rows.Err()
}

func (s *BusinessStore) Update(id string, in BusinessInput) (*model.Business, error) {
	var active int
	if in.Active {
		active = 1
	}

	_, err := s.db.Exec(
		`UPDATE businesses SET name = ?, slug = ?, description = ?, category_id = ?, city = ?, address = ?, postal_code = ?, email = ?, phone = ?, website = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		in.Name, in.Slug, in.Description, in.CategoryID, in.City, in.Address,
		in.PostalCode, in.Email, in.Phone, in.Website, active, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update business: %w", err)
	}
	return s.GetByID(id)
}

func (s *BusinessStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM businesses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete business: %w", err)
	}
	return nil
}
