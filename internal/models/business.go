package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Verification statuses for a business record. Only an administrator moves a
// record out of Pending; Approved and Rejected may be flipped to each other
// on re-review but never back to Pending.
const (
	StatusPending  = 1
	StatusApproved = 2
	StatusRejected = 3
)

// Ownership types accepted on registration
const (
	OwnershipIndividual  = "Individual"
	OwnershipPartnership = "Partnership"
)

// Owner genders
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// Gender summaries denormalized onto the record for aggregate queries
const (
	GenderSummaryMale   = "Male"
	GenderSummaryFemale = "Female"
	GenderSummaryBoth   = "Both"
)

// Director nationalities
const (
	NationalitySwazi    = "Swazi"
	NationalityNonSwazi = "Non Swazi"
)

// Rural/urban classifications
const (
	ClassificationRural     = "Rural"
	ClassificationUrban     = "Urban"
	ClassificationSemiUrban = "Semi Urban"
)

// MaxRejectionCommentLength caps the administrator's rejection comment
const MaxRejectionCommentLength = 750

// Owner is a single business owner as captured on the registration form
type Owner struct {
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

// Director is an optional company director entry
type Director struct {
	Nationality string `json:"nationality"`
	AgeBracket  string `json:"age_bracket,omitempty"`
}

// OwnerList stores the owners as a JSONB column
type OwnerList []Owner

// Value implements the driver.Valuer interface
func (l OwnerList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]Owner{})
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface
func (l *OwnerList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into OwnerList", src)
	}
	return json.Unmarshal(b, l)
}

// DirectorList stores the directors as a JSONB column
type DirectorList []Director

// Value implements the driver.Valuer interface
func (l DirectorList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]Director{})
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface
func (l *DirectorList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into DirectorList", src)
	}
	return json.Unmarshal(b, l)
}

// BusinessRecord represents an MSME registration submitted by an applicant
type BusinessRecord struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	Name             string       `json:"name" db:"name"`
	CategoryID       uuid.UUID    `json:"category_id" db:"category_id"`
	SubCategoryID    uuid.UUID    `json:"sub_category_id" db:"sub_category_id"`
	Region           string       `json:"region" db:"region"`
	Inkhundla        string       `json:"inkhundla" db:"inkhundla"`
	Classification   string       `json:"classification" db:"classification"`
	TurnoverBracket  string       `json:"turnover_bracket" db:"turnover_bracket"`
	OwnershipType    string       `json:"ownership_type" db:"ownership_type"`
	Owners           OwnerList    `json:"owners" db:"owners"`
	Directors        DirectorList `json:"directors" db:"directors"`
	GenderSummary    NullString   `json:"gender_summary" db:"gender_summary"`
	ApplicantEmail   string       `json:"applicant_email" db:"applicant_email"`
	Status           int          `json:"status" db:"status"`
	RejectionComment NullString   `json:"rejection_comment" db:"rejection_comment"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
	DeletedAt        NullTime     `json:"deleted_at" db:"deleted_at"`
}

// IsDeleted reports whether the record has been soft-deleted
func (b *BusinessRecord) IsDeleted() bool {
	return b.DeletedAt.Valid
}

// StatusLabel returns the human-readable verification status
func StatusLabel(status int) string {
	switch status {
	case StatusPending:
		return "Pending"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// IsValidStatus reports whether the numeric status code is known
func IsValidStatus(status int) bool {
	return status == StatusPending || status == StatusApproved || status == StatusRejected
}
