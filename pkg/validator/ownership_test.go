package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
)

func owners(genders ...string) []models.Owner {
	list := make([]models.Owner, 0, len(genders))
	for _, g := range genders {
		list = append(list, models.Owner{
			Name:   "Owner",
			Gender: g,
		})
	}
	return list
}

func TestValidate_Individual(t *testing.T) {
	v := NewOwnershipValidator()

	err := v.Validate(models.OwnershipIndividual, owners(models.GenderMale))
	assert.NoError(t, err)
}

func TestValidate_IndividualOwnerCount(t *testing.T) {
	v := NewOwnershipValidator()

	tests := []struct {
		name   string
		owners []models.Owner
	}{
		{"no owners", owners()},
		{"two owners", owners(models.GenderMale, models.GenderFemale)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(models.OwnershipIndividual, tt.owners)
			assert.ErrorIs(t, err, ErrOwnerCountMismatch)
		})
	}
}

func TestValidate_PartnershipBounds(t *testing.T) {
	v := NewOwnershipValidator()

	// 2-5 owners are valid
	for n := PartnershipMinOwners; n <= PartnershipMaxOwners; n++ {
		genders := make([]string, n)
		for i := range genders {
			genders[i] = models.GenderFemale
		}
		assert.NoError(t, v.Validate(models.OwnershipPartnership, owners(genders...)))
	}

	// 1 and 6 are not
	err := v.Validate(models.OwnershipPartnership, owners(models.GenderMale))
	assert.ErrorIs(t, err, ErrOwnerCountMismatch)

	six := owners(models.GenderMale, models.GenderMale, models.GenderMale,
		models.GenderMale, models.GenderMale, models.GenderMale)
	err = v.Validate(models.OwnershipPartnership, six)
	assert.ErrorIs(t, err, ErrOwnerCountMismatch)
}

func TestValidate_UnknownOwnershipType(t *testing.T) {
	v := NewOwnershipValidator()

	err := v.Validate("Cooperative", owners(models.GenderMale))
	assert.ErrorIs(t, err, ErrInvalidOwnershipType)
}

func TestValidate_OwnerGender(t *testing.T) {
	v := NewOwnershipValidator()

	err := v.Validate(models.OwnershipPartnership, owners(models.GenderMale, "Other"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOwnerGender)
	// Error names the first offending index
	assert.Contains(t, err.Error(), "index 1")
}

func TestValidate_FirstOffendingOwnerReported(t *testing.T) {
	v := NewOwnershipValidator()

	err := v.Validate(models.OwnershipPartnership, owners("", models.GenderMale, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 0")
}

func TestComputeGenderSummary(t *testing.T) {
	v := NewOwnershipValidator()

	tests := []struct {
		name     string
		owners   []models.Owner
		expected string
	}{
		{"no owners", owners(), ""},
		{"all male", owners(models.GenderMale, models.GenderMale), models.GenderMale},
		{"all female", owners(models.GenderFemale), models.GenderFemale},
		{"mixed", owners(models.GenderMale, models.GenderFemale), models.GenderSummaryBoth},
		{"mixed reversed", owners(models.GenderFemale, models.GenderMale), models.GenderSummaryBoth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, v.ComputeGenderSummary(tt.owners))
		})
	}
}

func TestComputeGenderSummary_OrderIndependent(t *testing.T) {
	v := NewOwnershipValidator()

	a := owners(models.GenderMale, models.GenderFemale, models.GenderFemale)
	b := owners(models.GenderFemale, models.GenderFemale, models.GenderMale)

	assert.Equal(t, v.ComputeGenderSummary(a), v.ComputeGenderSummary(b))
}

func TestValidateAdditionalFields(t *testing.T) {
	v := NewOwnershipValidator()

	assert.NoError(t, v.ValidateAdditionalFields("Hhukwini", models.ClassificationRural))
	assert.NoError(t, v.ValidateAdditionalFields("Mbabane East", models.ClassificationUrban))
	assert.NoError(t, v.ValidateAdditionalFields("Kwaluseni", models.ClassificationSemiUrban))

	err := v.ValidateAdditionalFields("", models.ClassificationRural)
	assert.ErrorIs(t, err, ErrEmptyInkhundla)

	err = v.ValidateAdditionalFields("Hhukwini", "Suburban")
	assert.ErrorIs(t, err, ErrInvalidClassification)
}

func TestValidateDirectorsNationality(t *testing.T) {
	v := NewOwnershipValidator()

	// Directors are optional
	assert.NoError(t, v.ValidateDirectorsNationality(nil))

	valid := []models.Director{
		{Nationality: models.NationalitySwazi},
		{Nationality: models.NationalityNonSwazi},
	}
	assert.NoError(t, v.ValidateDirectorsNationality(valid))

	invalid := []models.Director{
		{Nationality: models.NationalitySwazi},
		{Nationality: "Foreign"},
	}
	err := v.ValidateDirectorsNationality(invalid)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDirectorNationality)
	assert.Contains(t, err.Error(), "index 1")
}
