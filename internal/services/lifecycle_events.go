package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eswatinicommerce/msme-registry-backend/internal/database"
	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
)

// Lifecycle events emitted by the verification state machine. Each event
// carries everything its handlers need, so a handler re-run applies the same
// deltas (at-least-once delivery tolerant).

// BusinessCreatedEvent fires after a registration is persisted
type BusinessCreatedEvent struct {
	BusinessID uuid.UUID
	CategoryID uuid.UUID
	OccurredAt time.Time
}

// BusinessStatusChangedEvent fires after an administrator changes a record's
// verification status. OldCountedToday reports whether the old status was
// already counted into today's per-status counter, which decides whether the
// handler issues the compensating decrement.
type BusinessStatusChangedEvent struct {
	BusinessID      uuid.UUID
	OldStatus       int
	NewStatus       int
	OldCountedToday bool
	OccurredAt      time.Time
}

// BusinessCategoryChangedEvent fires after a record is reassigned to a new
// category
type BusinessCategoryChangedEvent struct {
	BusinessID    uuid.UUID
	OldCategoryID uuid.UUID
	NewCategoryID uuid.UUID
	OccurredAt    time.Time
}

// BusinessDeletedEvent fires after a hard delete (purge). Soft deletes do not
// emit it; the record still exists and the nightly reconciliation excludes it
// from the recount instead.
type BusinessDeletedEvent struct {
	BusinessID uuid.UUID
	CategoryID uuid.UUID
	OccurredAt time.Time
}

// LifecycleEventHandler reacts to business record lifecycle events
type LifecycleEventHandler interface {
	HandleBusinessCreated(event BusinessCreatedEvent) error
	HandleBusinessStatusChanged(event BusinessStatusChangedEvent) error
	HandleBusinessCategoryChanged(event BusinessCategoryChangedEvent) error
	HandleBusinessDeleted(event BusinessDeletedEvent) error
}

// CounterEventHandler translates lifecycle events into counter increments.
// Deltas are computed from the event payload alone, never from current store
// state, so redelivery reapplies the same delta.
type CounterEventHandler struct {
	counters *database.CounterRepository
}

// NewCounterEventHandler creates a new counter event handler
func NewCounterEventHandler(counters *database.CounterRepository) *CounterEventHandler {
	return &CounterEventHandler{
		counters: counters,
	}
}

// HandleBusinessCreated bumps the category running count and the day's
// registration flow counter
func (h *CounterEventHandler) HandleBusinessCreated(event BusinessCreatedEvent) error {
	if err := h.counters.Increment(models.CategoryCounterKey(event.CategoryID.String()), 1); err != nil {
		return fmt.Errorf("failed to count created business: %w", err)
	}

	if err := h.counters.Increment(models.RegistrationsCounterKey(event.OccurredAt), 1); err != nil {
		return fmt.Errorf("failed to count registration: %w", err)
	}

	return nil
}

// HandleBusinessStatusChanged moves today's per-status counters. The old
// status is decremented only when it was counted into today's bucket;
// identical transitions never reach this handler (the state machine
// short-circuits them).
func (h *CounterEventHandler) HandleBusinessStatusChanged(event BusinessStatusChangedEvent) error {
	if event.OldCountedToday {
		key := models.StatusCounterKey(event.OldStatus, event.OccurredAt)
		if err := h.counters.Increment(key, -1); err != nil {
			return fmt.Errorf("failed to uncount old status: %w", err)
		}
	}

	key := models.StatusCounterKey(event.NewStatus, event.OccurredAt)
	if err := h.counters.Increment(key, 1); err != nil {
		return fmt.Errorf("failed to count new status: %w", err)
	}

	return nil
}

// HandleBusinessCategoryChanged moves the record between category counters.
// The two increments are independent atomic operations, not one cross-key
// transaction: a crash in between leaves a transient under/overcount that
// the nightly reconciliation heals.
func (h *CounterEventHandler) HandleBusinessCategoryChanged(event BusinessCategoryChangedEvent) error {
	if err := h.counters.Increment(models.CategoryCounterKey(event.OldCategoryID.String()), -1); err != nil {
		return fmt.Errorf("failed to uncount old category: %w", err)
	}

	if err := h.counters.Increment(models.CategoryCounterKey(event.NewCategoryID.String()), 1); err != nil {
		return fmt.Errorf("failed to count new category: %w", err)
	}

	return nil
}

// HandleBusinessDeleted removes a purged record from its category count
func (h *CounterEventHandler) HandleBusinessDeleted(event BusinessDeletedEvent) error {
	if err := h.counters.Increment(models.CategoryCounterKey(event.CategoryID.String()), -1); err != nil {
		return fmt.Errorf("failed to uncount deleted business: %w", err)
	}

	return nil
}
