package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dicilo-app/dicilo/internal/model"
)

// RecommendationStore owns the prospect records the referral rewards react
// to. The points_paid flag is only ever flipped inside the same transaction
// that credits a wallet; see the ledger service.
type RecommendationStore struct {
	db *sql.DB
}

func NewRecommendationStore(db *sql.DB) *RecommendationStore {
	return &RecommendationStore{db: db}
}

func scanRecommendation(scanner interface{ Scan(...any) error }) (*model.Recommendation, error) {
	var r model.Recommendation
	var userID, originalOwnerID, reassignedBy sql.NullString
	var pointsPaid int
	var pointsPaidAt, reassignedAt sql.NullTime

	err := scanner.Scan(
		&r.ID, &userID, &r.Email, &r.BusinessName, &r.Note,
		&pointsPaid, &pointsPaidAt, &originalOwnerID,
		&reassignedAt, &reassignedBy, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.PointsPaid = pointsPaid != 0
	if userID.Valid {
		r.UserID = &userID.String
	}
	if pointsPaidAt.Valid {
		r.PointsPaidAt = &pointsPaidAt.Time
	}
	if originalOwnerID.Valid {
		r.OriginalOwnerID = &originalOwnerID.String
	}
	if reassignedAt.Valid {
		r.ReassignedAt = &reassignedAt.Time
	}
	if reassignedBy.Valid {
		r.ReassignedBy = &reassignedBy.String
	}
	return &r, nil
}

const recommendationCols = `id, user_id, email, business_name, note, points_paid, points_paid_at, original_owner_id, reassigned_at, reassigned_by, created_at`

// CreateTx inserts a new recommendation through q and returns its id.
func (s *RecommendationStore) CreateTx(q DBTX, userID *string, email, businessName, note string) (string, error) {
	id := uuid.NewString()
	_, err := q.Exec(
		`INSERT INTO recommendations (id, user_id, email, business_name, note, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, email, businessName, note, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert recommendation: %w", err)
	}
	return id, nil
}

func (s *RecommendationStore) GetByID(id string) (*model.Recommendation, error) {
	return s.GetByIDTx(s.db, id)
}

func (s *RecommendationStore) GetByIDTx(q DBTX, id string) (*model.Recommendation, error) {
	row := q.QueryRow(`SELECT `+recommendationCols+` FROM recommendations WHERE id = ?`, id)
	r, err := scanRecommendation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}
	return r, nil
}

// ListForReferrer gathers the prospects owned by userID together with those
// whose email matches (orphans created before the referrer had a profile),
// de-duplicated by id.
func (s *RecommendationStore) ListForReferrer(userID, email string) ([]model.Recommendation, error) {
	rows, err := s.db.Query(
		`SELECT `+recommendationCols+` FROM recommendations WHERE user_id = ?
		 UNION
		 SELECT `+recommendationCols+` FROM recommendations WHERE email = ?`,
		userID, email,
	)
	if err != nil {
		return nil, fmt.Errorf("list recommendations for referrer: %w", err)
	}
	defer rows.Close()

	var recs []model.Recommendation
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, *r)
	}
	return recs, rows.Err()
}

// MarkPaid flips points_paid and stamps the payout time. Must run inside the
// same transaction as the wallet credit.
func (s *RecommendationStore) MarkPaid(q DBTX, id string, at time.Time) error {
	_, err := q.Exec(
		`UPDATE recommendations SET points_paid = 1, points_paid_at = ? WHERE id = ?`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("mark recommendation paid: %w", err)
	}
	return nil
}

// MarkPaidWithOwner additionally backfills ownership, recording who owned
// the prospect before the audit recovered it.
func (s *RecommendationStore) MarkPaidWithOwner(q DBTX, id, ownerID, originalOwnerID string, at time.Time) error {
	_, err := q.Exec(
		`UPDATE recommendations SET points_paid = 1, points_paid_at = ?, user_id = ?, original_owner_id = ? WHERE id = ?`,
		at, ownerID, originalOwnerID, id,
	)
	if err != nil {
		return fmt.Errorf("mark recommendation paid with owner: %w", err)
	}
	return nil
}

// Reassign moves a prospect to a new owner, forcing points_paid and stamping
// the reassignment audit fields.
func (s *RecommendationStore) Reassign(q DBTX, id, newOwnerID, reassignedBy string, originalOwnerID *string, at time.Time) error {
	_, err := q.Exec(
		`UPDATE recommendations
		 SET user_id = ?, points_paid = 1, points_paid_at = ?, reassigned_at = ?, reassigned_by = ?, original_owner_id = ?
		 WHERE id = ?`,
		newOwnerID, at, at, reassignedBy, originalOwnerID, id,
	)
	if err != nil {
		return fmt.Errorf("reassign recommendation: %w", err)
	}
	return nil
}

// List returns recommendations newest-first for the admin table.
func (s *RecommendationStore) List(limit int) ([]model.Recommendation, error) {
	query := `SELECT ` + recommendationCols + ` FROM recommendations ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var recs []model.Recommendation
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, *r)
	}
	return recs, rows.Err()
}
