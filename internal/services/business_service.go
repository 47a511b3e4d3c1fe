package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eswatinicommerce/msme-registry-backend/internal/database"
	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
	"github.com/eswatinicommerce/msme-registry-backend/pkg/mailer"
	"github.com/eswatinicommerce/msme-registry-backend/pkg/validator"
)

var (
	// ErrRejectionReasonRequired indicates a rejection without a comment
	ErrRejectionReasonRequired = errors.New("a rejection reason is required")

	// ErrRejectionReasonTooLong indicates the rejection comment exceeds the limit
	ErrRejectionReasonTooLong = fmt.Errorf("rejection reason cannot exceed %d characters", models.MaxRejectionCommentLength)

	// ErrInvalidStatusTransition indicates a target status outside Approved/Rejected
	ErrInvalidStatusTransition = errors.New("status can only be set to Approved or Rejected")
)

// StatusTemplate maps a verification status to its notification template.
// Pure function: no shared state between concurrent requests.
func StatusTemplate(status int) (templateID string, ok bool) {
	switch status {
	case models.StatusApproved:
		return mailer.TemplateBusinessApproved, true
	case models.StatusRejected:
		return mailer.TemplateBusinessRejected, true
	default:
		return "", false
	}
}

// BusinessService owns the business record verification state machine.
// Records enter at Pending; an administrator moves them to Approved or
// Rejected and may flip between those two on re-review. Every committed
// mutation emits a lifecycle event for the counter handlers.
type BusinessService struct {
	businesses *database.BusinessRepository
	ownership  *validator.OwnershipValidator
	events     LifecycleEventHandler
	mail       mailer.Mailer
}

// NewBusinessService creates a new business service
func NewBusinessService(
	businesses *database.BusinessRepository,
	ownership *validator.OwnershipValidator,
	events LifecycleEventHandler,
	mail mailer.Mailer,
) *BusinessService {
	return &BusinessService{
		businesses: businesses,
		ownership:  ownership,
		events:     events,
		mail:       mail,
	}
}

// CreateBusinessInput is the applicant submission payload
type CreateBusinessInput struct {
	Name            string
	CategoryID      uuid.UUID
	SubCategoryID   uuid.UUID
	Region          string
	Inkhundla       string
	Classification  string
	TurnoverBracket string
	OwnershipType   string
	Owners          []models.Owner
	Directors       []models.Director
	ApplicantEmail  string
}

// Create validates and persists a new registration in Pending status. On any
// validation failure the first error is returned and nothing is written.
func (s *BusinessService) Create(input CreateBusinessInput) (*models.BusinessRecord, error) {
	if err := s.ownership.Validate(input.OwnershipType, input.Owners); err != nil {
		return nil, err
	}
	if err := s.ownership.ValidateAdditionalFields(input.Inkhundla, input.Classification); err != nil {
		return nil, err
	}
	if err := s.ownership.ValidateDirectorsNationality(input.Directors); err != nil {
		return nil, err
	}

	record := &models.BusinessRecord{
		ID:              uuid.New(),
		Name:            input.Name,
		CategoryID:      input.CategoryID,
		SubCategoryID:   input.SubCategoryID,
		Region:          input.Region,
		Inkhundla:       input.Inkhundla,
		Classification:  input.Classification,
		TurnoverBracket: input.TurnoverBracket,
		OwnershipType:   input.OwnershipType,
		Owners:          input.Owners,
		Directors:       input.Directors,
		ApplicantEmail:  input.ApplicantEmail,
	}

	if summary := s.ownership.ComputeGenderSummary(input.Owners); summary != "" {
		record.GenderSummary.Valid = true
		record.GenderSummary.String = summary
	}

	if err := s.businesses.Create(record); err != nil {
		return nil, err
	}

	event := BusinessCreatedEvent{
		BusinessID: record.ID,
		CategoryID: record.CategoryID,
		OccurredAt: time.Now(),
	}
	if err := s.events.HandleBusinessCreated(event); err != nil {
		log.Printf("[BUSINESS] counter update failed for created record %s: %v", record.ID, err)
	}

	return record, nil
}

// SetStatus moves a record to Approved or Rejected. Re-submitting the
// current status is a no-op: nothing is written, no event fires and the
// counters stay untouched. Rejection requires a non-empty comment within the
// length limit; approval clears any stored comment. The applicant
// notification is fire-and-forget.
func (s *BusinessService) SetStatus(id uuid.UUID, newStatus int, comment string) error {
	if newStatus != models.StatusApproved && newStatus != models.StatusRejected {
		return ErrInvalidStatusTransition
	}

	record, err := s.businesses.GetByID(id)
	if err != nil {
		return err
	}
	if record.IsDeleted() {
		return database.ErrBusinessNotFound
	}

	// Idempotent short-circuit: identical target status must not move
	// counters again.
	if record.Status == newStatus {
		return nil
	}

	var storedComment *string
	if newStatus == models.StatusRejected {
		comment = strings.TrimSpace(comment)
		if comment == "" {
			return ErrRejectionReasonRequired
		}
		if len(comment) > models.MaxRejectionCommentLength {
			return ErrRejectionReasonTooLong
		}
		storedComment = &comment
	}

	if err := s.businesses.UpdateStatus(id, newStatus, storedComment); err != nil {
		return err
	}

	now := time.Now()
	event := BusinessStatusChangedEvent{
		BusinessID: id,
		OldStatus:  record.Status,
		NewStatus:  newStatus,
		// Pending is never fed into the per-day status counters, and a
		// non-Pending status only landed in today's bucket if the record was
		// last touched today.
		OldCountedToday: record.Status != models.StatusPending && sameDay(record.UpdatedAt, now),
		OccurredAt:      now,
	}
	if err := s.events.HandleBusinessStatusChanged(event); err != nil {
		log.Printf("[BUSINESS] counter update failed for status change %s: %v", id, err)
	}

	s.notifyApplicant(record, newStatus, comment)

	return nil
}

// ReassignCategory moves a record to a new category and shifts the category
// counters. Reassigning to the current category is a no-op.
func (s *BusinessService) ReassignCategory(id uuid.UUID, newCategoryID uuid.UUID) error {
	record, err := s.businesses.GetByID(id)
	if err != nil {
		return err
	}
	if record.IsDeleted() {
		return database.ErrBusinessNotFound
	}

	if record.CategoryID == newCategoryID {
		return nil
	}

	if err := s.businesses.UpdateCategory(id, newCategoryID); err != nil {
		return err
	}

	event := BusinessCategoryChangedEvent{
		BusinessID:    id,
		OldCategoryID: record.CategoryID,
		NewCategoryID: newCategoryID,
		OccurredAt:    time.Now(),
	}
	if err := s.events.HandleBusinessCategoryChanged(event); err != nil {
		log.Printf("[BUSINESS] counter update failed for category change %s: %v", id, err)
	}

	return nil
}

// SoftDelete marks a record deleted. Counters are left alone here; the
// nightly recount folds soft deletions in.
func (s *BusinessService) SoftDelete(id uuid.UUID) error {
	return s.businesses.SoftDelete(id)
}

// Purge permanently removes a record and emits the deletion event so the
// category counter gives the slot back
func (s *BusinessService) Purge(id uuid.UUID) error {
	record, err := s.businesses.GetByID(id)
	if err != nil {
		return err
	}

	if err := s.businesses.Purge(id); err != nil {
		return err
	}

	event := BusinessDeletedEvent{
		BusinessID: id,
		CategoryID: record.CategoryID,
		OccurredAt: time.Now(),
	}
	if err := s.events.HandleBusinessDeleted(event); err != nil {
		log.Printf("[BUSINESS] counter update failed for purged record %s: %v", id, err)
	}

	return nil
}

// GetByID retrieves a business record
func (s *BusinessService) GetByID(id uuid.UUID) (*models.BusinessRecord, error) {
	return s.businesses.GetByID(id)
}

// notifyApplicant sends the status notification email. Failures are logged
// and never roll back the status change.
func (s *BusinessService) notifyApplicant(record *models.BusinessRecord, newStatus int, comment string) {
	if record.ApplicantEmail == "" {
		return
	}

	templateID, ok := StatusTemplate(newStatus)
	if !ok {
		return
	}

	data := map[string]interface{}{
		"business_name": record.Name,
		"status":        models.StatusLabel(newStatus),
	}
	if newStatus == models.StatusRejected {
		data["reason"] = comment
	}

	if _, err := s.mail.Send(templateID, data, record.ApplicantEmail); err != nil {
		log.Printf("[BUSINESS] status notification failed for %s: %v", record.ID, err)
	}
}

// sameDay reports whether two instants fall on the same calendar day
func sameDay(a, b time.Time) bool {
	return a.Format(models.DateLayout) == b.Format(models.DateLayout)
}
