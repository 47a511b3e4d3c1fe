package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot types
const (
	SnapshotDaily   = "daily"
	SnapshotMonthly = "monthly"
)

// CountMap stores a breakdown (by category, region or gender) as JSONB
type CountMap map[string]int64

// Value implements the driver.Valuer interface
func (m CountMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]int64{})
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface
func (m *CountMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into CountMap", src)
	}
	return json.Unmarshal(b, m)
}

// AnalyticsSnapshot is an immutable point-in-time aggregate written once per
// period by the scheduled aggregator. Re-running a period upserts the same
// (type, period) key rather than creating a duplicate row.
//
// Totals and the breakdown maps are gauges (state at snapshot time); the
// four flow counts (registrations/subscribers/feedback/tickets) accumulate
// over the period.
type AnalyticsSnapshot struct {
	Type             string    `json:"type" db:"type"`
	Period           string    `json:"period" db:"period"`
	TotalBusinesses  int64     `json:"total_businesses" db:"total_businesses"`
	PendingCount     int64     `json:"pending_count" db:"pending_count"`
	ApprovedCount    int64     `json:"approved_count" db:"approved_count"`
	RejectedCount    int64     `json:"rejected_count" db:"rejected_count"`
	ByCategory       CountMap  `json:"by_category" db:"by_category"`
	ByRegion         CountMap  `json:"by_region" db:"by_region"`
	GenderSplit      CountMap  `json:"gender_split" db:"gender_split"`
	NewRegistrations int64     `json:"new_registrations" db:"new_registrations"`
	NewSubscribers   int64     `json:"new_subscribers" db:"new_subscribers"`
	FeedbackCount    int64     `json:"feedback_count" db:"feedback_count"`
	TicketCount      int64     `json:"ticket_count" db:"ticket_count"`
	GeneratedAt      time.Time `json:"generated_at" db:"generated_at"`
}
