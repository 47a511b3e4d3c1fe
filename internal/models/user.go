package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NullString wraps sql.NullString to provide proper JSON marshaling
type NullString struct {
	sql.NullString
}

// MarshalJSON implements json.Marshaler
func (ns NullString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.String)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (ns *NullString) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != nil {
		ns.Valid = true
		ns.String = *s
	} else {
		ns.Valid = false
	}
	return nil
}

// NullTime wraps sql.NullTime to provide proper JSON marshaling
type NullTime struct {
	sql.NullTime
}

// MarshalJSON implements json.Marshaler
func (nt NullTime) MarshalJSON() ([]byte, error) {
	if nt.Valid {
		return json.Marshal(nt.Time)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (nt *NullTime) UnmarshalJSON(data []byte) error {
	var t *time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	if t != nil {
		nt.Valid = true
		nt.Time = *t
	} else {
		nt.Valid = false
	}
	return nil
}

// Account represents a registry user (administrator or applicant contact)
type Account struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Roles        []string  `json:"roles" db:"roles"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the account carries the admin role
func (a *Account) IsAdmin() bool {
	for _, r := range a.Roles {
		if r == "admin" {
			return true
		}
	}
	return false
}

// PasswordResetChallenge is the OTP/reset-token state attached to an account
// during credential recovery. The OTP is single use and expires 10 minutes
// after issuance; the reset token is issued only once the OTP is verified and
// carries its own short expiry.
type PasswordResetChallenge struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Email           string     `json:"email" db:"email"`
	OTPCode         string     `json:"-" db:"otp_code"`
	OTPExpiresAt    time.Time  `json:"otp_expires_at" db:"otp_expires_at"`
	Verified        bool       `json:"verified" db:"verified"`
	VerifiedAt      NullTime   `json:"verified_at" db:"verified_at"`
	ResetToken      NullString `json:"-" db:"reset_token"`
	TokenExpiresAt  NullTime   `json:"token_expires_at" db:"token_expires_at"`
	TokenConsumedAt NullTime   `json:"token_consumed_at" db:"token_consumed_at"`
	RequestIP       string     `json:"-" db:"request_ip"`
	RequestDevice   string     `json:"-" db:"request_device"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}
