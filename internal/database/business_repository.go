package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
)

// ErrBusinessNotFound indicates no business record exists for the given id
var ErrBusinessNotFound = fmt.Errorf("business record not found")

// BusinessRepository handles business record database operations
type BusinessRepository struct {
	db DB
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db DB) *BusinessRepository {
	return &BusinessRepository{
		db: db,
	}
}

// Create inserts a new business record. The caller is expected to have
// validated the payload; records always start in Pending.
func (r *BusinessRepository) Create(record *models.BusinessRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Status = models.StatusPending
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt

	query := `
		INSERT INTO business_records (
			id, name, category_id, sub_category_id, region, inkhundla,
			classification, turnover_bracket, ownership_type, owners, directors,
			gender_summary, applicant_email, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.Exec(
		query,
		record.ID,
		record.Name,
		record.CategoryID,
		record.SubCategoryID,
		record.Region,
		record.Inkhundla,
		record.Classification,
		record.TurnoverBracket,
		record.OwnershipType,
		record.Owners,
		record.Directors,
		record.GenderSummary,
		record.ApplicantEmail,
		record.Status,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create business record: %w", err)
	}

	return nil
}

// GetByID retrieves a business record by id, including soft-deleted rows
func (r *BusinessRepository) GetByID(id uuid.UUID) (*models.BusinessRecord, error) {
	query := `
		SELECT id, name, category_id, sub_category_id, region, inkhundla,
		       classification, turnover_bracket, ownership_type, owners, directors,
		       gender_summary, applicant_email, status, rejection_comment,
		       created_at, updated_at, deleted_at
		FROM business_records
		WHERE id = $1
	`

	var record models.BusinessRecord
	err := r.db.QueryRow(query, id).Scan(
		&record.ID,
		&record.Name,
		&record.CategoryID,
		&record.SubCategoryID,
		&record.Region,
		&record.Inkhundla,
		&record.Classification,
		&record.TurnoverBracket,
		&record.OwnershipType,
		&record.Owners,
		&record.Directors,
		&record.GenderSummary,
		&record.ApplicantEmail,
		&record.Status,
		&record.RejectionComment,
		&record.CreatedAt,
		&record.UpdatedAt,
		&record.DeletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to get business record: %w", err)
	}

	return &record, nil
}

// UpdateStatus persists a new verification status. A nil comment clears the
// stored rejection comment (the Approved path always clears it).
func (r *BusinessRepository) UpdateStatus(id uuid.UUID, status int, comment *string) error {
	query := `
		UPDATE business_records
		SET status = $1, rejection_comment = $2, updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, status, comment, id)
	if err != nil {
		return fmt.Errorf("failed to update business status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrBusinessNotFound
	}

	return nil
}

// UpdateCategory reassigns a record to a new category
func (r *BusinessRepository) UpdateCategory(id uuid.UUID, categoryID uuid.UUID) error {
	query := `
		UPDATE business_records
		SET category_id = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, categoryID, id)
	if err != nil {
		return fmt.Errorf("failed to update business category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrBusinessNotFound
	}

	return nil
}

// SoftDelete marks a record as deleted without removing the row
func (r *BusinessRepository) SoftDelete(id uuid.UUID) error {
	query := `
		UPDATE business_records
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete business record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrBusinessNotFound
	}

	return nil
}

// Purge permanently removes a record. Only explicitly purged rows are ever
// hard-deleted.
func (r *BusinessRepository) Purge(id uuid.UUID) error {
	query := `DELETE FROM business_records WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to purge business record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrBusinessNotFound
	}

	return nil
}

// CountByStatus returns the number of non-deleted records per verification
// status plus the overall total
func (r *BusinessRepository) CountByStatus() (total, pending, approved, rejected int64, err error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3)
		FROM business_records
		WHERE deleted_at IS NULL
	`

	err = r.db.QueryRow(query, models.StatusPending, models.StatusApproved, models.StatusRejected).
		Scan(&total, &pending, &approved, &rejected)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to count businesses by status: %w", err)
	}

	return total, pending, approved, rejected, nil
}

// CountByCategory returns per-category counts of non-deleted approved records
func (r *BusinessRepository) CountByCategory() (models.CountMap, error) {
	query := `
		SELECT category_id::text, COUNT(*)
		FROM business_records
		WHERE deleted_at IS NULL AND status = $1
		GROUP BY category_id
	`

	return r.countGrouped(query, models.StatusApproved)
}

// CountAllByCategory returns per-category counts of all non-deleted records,
// regardless of status. This is the source-of-truth figure the category
// counters are reconciled against.
func (r *BusinessRepository) CountAllByCategory() (models.CountMap, error) {
	query := `
		SELECT category_id::text, COUNT(*)
		FROM business_records
		WHERE deleted_at IS NULL
		GROUP BY category_id
	`

	return r.countGrouped(query)
}

// CountByRegion returns per-region counts of non-deleted approved records
func (r *BusinessRepository) CountByRegion() (models.CountMap, error) {
	query := `
		SELECT region, COUNT(*)
		FROM business_records
		WHERE deleted_at IS NULL AND status = $1
		GROUP BY region
	`

	return r.countGrouped(query, models.StatusApproved)
}

// CountByGenderSummary returns the gender-ownership split of non-deleted
// approved records
func (r *BusinessRepository) CountByGenderSummary() (models.CountMap, error) {
	query := `
		SELECT gender_summary, COUNT(*)
		FROM business_records
		WHERE deleted_at IS NULL AND status = $1 AND gender_summary IS NOT NULL
		GROUP BY gender_summary
	`

	return r.countGrouped(query, models.StatusApproved)
}

// countGrouped runs a two-column (key, count) aggregate query into a CountMap
func (r *BusinessRepository) countGrouped(query string, args ...interface{}) (models.CountMap, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run grouped count: %w", err)
	}
	defer rows.Close()

	counts := models.CountMap{}
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan grouped count: %w", err)
		}
		counts[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read grouped counts: %w", err)
	}

	return counts, nil
}
