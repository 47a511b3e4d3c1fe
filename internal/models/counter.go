package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day key format used by daily counters and
// daily snapshots.
const DateLayout = "2006-01-02"

// MonthLayout is the period key format used by monthly snapshots.
const MonthLayout = "2006-01"

// Counter is a single denormalized aggregate value. The key encodes what is
// being counted (see the key helpers below); the value never goes negative.
type Counter struct {
	Key       string    `json:"key" db:"key"`
	Value     int64     `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CounterDelta is one increment operation for the batched counter API
type CounterDelta struct {
	Key   string
	Delta int64
}

// CategoryCounterKey returns the running-count key for a business category
func CategoryCounterKey(categoryID string) string {
	return "category:" + categoryID
}

// RegistrationsCounterKey returns the new-registrations key for a day
func RegistrationsCounterKey(day time.Time) string {
	return "registrations:" + day.Format(DateLayout)
}

// StatusCounterKey returns the per-day key for a verification status
func StatusCounterKey(status int, day time.Time) string {
	return fmt.Sprintf("status:%d:%s", status, day.Format(DateLayout))
}

// SubscribersCounterKey returns the new-subscribers key for a day
func SubscribersCounterKey(day time.Time) string {
	return "subscribers:" + day.Format(DateLayout)
}

// FeedbackCounterKey returns the feedback-received key for a day
func FeedbackCounterKey(day time.Time) string {
	return "feedback:" + day.Format(DateLayout)
}

// TicketsCounterKey returns the tickets-opened key for a day
func TicketsCounterKey(day time.Time) string {
	return "tickets:" + day.Format(DateLayout)
}
