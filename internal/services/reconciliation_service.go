package services

import (
	"fmt"
	"strings"

	"github.com/eswatinicommerce/msme-registry-backend/internal/database"
	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
)

// ReconciliationService recomputes every category counter from the source
// records and overwrites the stored values. This is what makes the
// non-atomic two-step category swap and the soft-delete counter gap safe:
// any drift they introduce lasts at most until the next recount.
type ReconciliationService struct {
	businesses *database.BusinessRepository
	counters   *database.CounterRepository
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	businesses *database.BusinessRepository,
	counters *database.CounterRepository,
) *ReconciliationService {
	return &ReconciliationService{
		businesses: businesses,
		counters:   counters,
	}
}

// RecountCategories performs a full recount of the per-category counters.
// Returns the number of counters rewritten.
func (s *ReconciliationService) RecountCategories() (int, error) {
	counts, err := s.businesses.CountAllByCategory()
	if err != nil {
		return 0, fmt.Errorf("category recount failed: %w", err)
	}

	rewritten := 0
	for categoryID, count := range counts {
		key := models.CategoryCounterKey(categoryID)
		if err := s.counters.Set(key, count); err != nil {
			return rewritten, fmt.Errorf("category recount failed: %w", err)
		}
		rewritten++
	}

	// Categories whose last record was deleted no longer show up in the
	// grouped count; zero their counters explicitly.
	existing, err := s.counters.ListKeysByPrefix("category:")
	if err != nil {
		return rewritten, fmt.Errorf("category recount failed: %w", err)
	}
	for _, key := range existing {
		categoryID := strings.TrimPrefix(key, "category:")
		if _, ok := counts[categoryID]; ok {
			continue
		}
		if err := s.counters.Set(key, 0); err != nil {
			return rewritten, fmt.Errorf("category recount failed: %w", err)
		}
		rewritten++
	}

	return rewritten, nil
}
