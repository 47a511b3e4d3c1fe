package validator

import (
	"errors"
	"fmt"

	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
)

var (
	// ErrInvalidOwnershipType indicates the ownership type is not Individual or Partnership
	ErrInvalidOwnershipType = errors.New("ownership type must be 'Individual' or 'Partnership'")

	// ErrOwnerCountMismatch indicates the owner count is wrong for the ownership type
	ErrOwnerCountMismatch = errors.New("owner count does not match ownership type")

	// ErrInvalidOwnerGender indicates an owner has an unrecognized gender value
	ErrInvalidOwnerGender = errors.New("owner gender must be 'Male' or 'Female'")

	// ErrInvalidDirectorNationality indicates a director has an unrecognized nationality
	ErrInvalidDirectorNationality = errors.New("director nationality must be 'Swazi' or 'Non Swazi'")

	// ErrEmptyInkhundla indicates the inkhundla field is missing
	ErrEmptyInkhundla = errors.New("inkhundla cannot be empty")

	// ErrInvalidClassification indicates an unrecognized rural/urban classification
	ErrInvalidClassification = errors.New("classification must be 'Rural', 'Urban' or 'Semi Urban'")
)

// Owner count bounds per ownership type
const (
	IndividualOwnerCount = 1
	PartnershipMinOwners = 2
	PartnershipMaxOwners = 5
)

// OwnershipValidator validates the ownership rules of a business registration
type OwnershipValidator struct{}

// NewOwnershipValidator creates a new ownership validator instance
func NewOwnershipValidator() *OwnershipValidator {
	return &OwnershipValidator{}
}

// Validate checks the ownership type against the owner list.
// Individual requires exactly one owner; Partnership requires two to five.
// Every owner must carry a valid gender; the first offending index is
// reported in the error.
func (v *OwnershipValidator) Validate(ownershipType string, owners []models.Owner) error {
	switch ownershipType {
	case models.OwnershipIndividual:
		if len(owners) != IndividualOwnerCount {
			return fmt.Errorf("%w: Individual requires exactly %d owner, got %d",
				ErrOwnerCountMismatch, IndividualOwnerCount, len(owners))
		}
	case models.OwnershipPartnership:
		if len(owners) < PartnershipMinOwners || len(owners) > PartnershipMaxOwners {
			return fmt.Errorf("%w: Partnership requires %d-%d owners, got %d",
				ErrOwnerCountMismatch, PartnershipMinOwners, PartnershipMaxOwners, len(owners))
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidOwnershipType, ownershipType)
	}

	for i, owner := range owners {
		if owner.Gender != models.GenderMale && owner.Gender != models.GenderFemale {
			return fmt.Errorf("%w: owner at index %d has gender %q",
				ErrInvalidOwnerGender, i, owner.Gender)
		}
	}

	return nil
}

// ComputeGenderSummary returns the denormalized gender summary for an owner
// set: Male or Female when all owners share a gender, Both when the set
// contains more than one distinct gender, and empty string for no owners.
// The result does not depend on owner order.
func (v *OwnershipValidator) ComputeGenderSummary(owners []models.Owner) string {
	if len(owners) == 0 {
		return ""
	}

	first := owners[0].Gender
	for _, owner := range owners[1:] {
		if owner.Gender != first {
			return models.GenderSummaryBoth
		}
	}

	return first
}

// ValidateAdditionalFields applies the inkhundla and rural/urban
// classification rules
func (v *OwnershipValidator) ValidateAdditionalFields(inkhundla, classification string) error {
	if inkhundla == "" {
		return ErrEmptyInkhundla
	}

	switch classification {
	case models.ClassificationRural, models.ClassificationUrban, models.ClassificationSemiUrban:
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidClassification, classification)
	}
}

// ValidateDirectorsNationality checks every director's nationality.
// Directors are optional, so an empty list is valid.
func (v *OwnershipValidator) ValidateDirectorsNationality(directors []models.Director) error {
	for i, d := range directors {
		if d.Nationality != models.NationalitySwazi && d.Nationality != models.NationalityNonSwazi {
			return fmt.Errorf("%w: director at index %d has nationality %q",
				ErrInvalidDirectorNationality, i, d.Nationality)
		}
	}

	return nil
}
