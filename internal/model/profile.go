package model

import (
	"encoding/json"
	"time"
)

// Profile is the private profile of a directory user (referrer/freelancer).
// Referrals holds the raw JSON array as stored; entries are polymorphic
// (either a bare uid string or an object carrying a uid field) and are
// normalized through ReferralIDs.
type Profile struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	UniqueCode   string    `json:"unique_code"`
	PromoterCode string    `json:"promoter_code"`
	Referrals    string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// referralRef tolerates the two historical shapes of a referral entry.
type referralRef struct {
	UID string `json:"uid"`
	ID  string `json:"id"`
}

// ReferralIDs normalizes the profile's referrals array to a list of uids.
// Entries may be strings or objects with a "uid" (or legacy "id") field;
// malformed or empty entries are skipped.
func (p *Profile) ReferralIDs() ([]string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(p.Referrals), &raw); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(raw))
	for _, entry := range raw {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			if s != "" {
				ids = append(ids, s)
			}
			continue
		}

		var ref referralRef
		if err := json.Unmarshal(entry, &ref); err != nil {
			continue
		}
		switch {
		case ref.UID != "":
			ids = append(ids, ref.UID)
		case ref.ID != "":
			ids = append(ids, ref.ID)
		}
	}
	return ids, nil
}
