package model

import "time"

// OrphanedOwnerSentinel marks a recommendation that was recovered by a
// retroactive audit before any owner had been recorded for it.
const OrphanedOwnerSentinel = "ORPHANED"

// Recommendation is a prospect submitted through the referral flow. A
// recommendation is rewarded at most once: PointsPaid flips false to true
// exactly once, inside the same transaction that credits the referrer.
type Recommendation struct {
	ID              string     `json:"id"`
	UserID          *string    `json:"user_id,omitempty"`
	Email           string     `json:"email"`
	BusinessName    string     `json:"business_name"`
	Note            string     `json:"note"`
	PointsPaid      bool       `json:"points_paid"`
	PointsPaidAt    *time.Time `json:"points_paid_at,omitempty"`
	OriginalOwnerID *string    `json:"original_owner_id,omitempty"`
	ReassignedAt    *time.Time `json:"reassigned_at,omitempty"`
	ReassignedBy    *string    `json:"reassigned_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
