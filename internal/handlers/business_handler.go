package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eswatinicommerce/msme-registry-backend/internal/database"
	"github.com/eswatinicommerce/msme-registry-backend/internal/models"
	"github.com/eswatinicommerce/msme-registry-backend/internal/services"
	"github.com/eswatinicommerce/msme-registry-backend/pkg/validator"
)

// BusinessHandler handles business registration HTTP requests
type BusinessHandler struct {
	businessService *services.BusinessService
}

// NewBusinessHandler creates a new business handler
func NewBusinessHandler(businessService *services.BusinessService) *BusinessHandler {
	return &BusinessHandler{
		businessService: businessService,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// MessageResponse represents a simple success response
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateBusinessRequest represents an applicant submission
type CreateBusinessRequest struct {
	Name            string            `json:"name" binding:"required"`
	CategoryID      string            `json:"category_id" binding:"required"`
	SubCategoryID   string            `json:"sub_category_id" binding:"required"`
	Region          string            `json:"region" binding:"required"`
	Inkhundla       string            `json:"inkhundla"`
	Classification  string            `json:"classification"`
	TurnoverBracket string            `json:"turnover_bracket"`
	OwnershipType   string            `json:"ownership_type" binding:"required"`
	Owners          []models.Owner    `json:"owners" binding:"required"`
	Directors       []models.Director `json:"directors"`
	ApplicantEmail  string            `json:"applicant_email" binding:"required,email"`
}

// CreateBusinessResponse carries the new record's id
type CreateBusinessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// VerifyBusinessRequest represents the admin verification decision
type VerifyBusinessRequest struct {
	IsVerified int    `json:"is_verified" binding:"required"`
	Comments   string `json:"comments"`
}

// ReassignCategoryRequest represents a category reassignment
type ReassignCategoryRequest struct {
	CategoryID string `json:"category_id" binding:"required"`
}

// Create handles POST /api/v1/business
func (h *BusinessHandler) Create(c *gin.Context) {
	var req CreateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid category id",
		})
		return
	}

	subCategoryID, err := uuid.Parse(req.SubCategoryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid sub-category id",
		})
		return
	}

	record, err := h.businessService.Create(services.CreateBusinessInput{
		Name:            req.Name,
		CategoryID:      categoryID,
		SubCategoryID:   subCategoryID,
		Region:          req.Region,
		Inkhundla:       req.Inkhundla,
		Classification:  req.Classification,
		TurnoverBracket: req.TurnoverBracket,
		OwnershipType:   req.OwnershipType,
		Owners:          req.Owners,
		Directors:       req.Directors,
		ApplicantEmail:  req.ApplicantEmail,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    validationCode(err),
		})
		return
	}

	c.JSON(http.StatusCreated, CreateBusinessResponse{
		Message: "Business registration submitted",
		ID:      record.ID.String(),
	})
}

// Verify handles PUT /api/v1/business/:id/verify
func (h *BusinessHandler) Verify(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid business id",
		})
		return
	}

	var req VerifyBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	err = h.businessService.SetStatus(id, req.IsVerified, req.Comments)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrBusinessNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Business record not found",
			})
		case errors.Is(err, services.ErrInvalidStatusTransition),
			errors.Is(err, services.ErrRejectionReasonRequired),
			errors.Is(err, services.ErrRejectionReasonTooLong):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "state_conflict",
				Message: err.Error(),
				Code:    validationCode(err),
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to update verification status",
			})
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Verification status updated"})
}

// ReassignCategory handles PUT /api/v1/business/:id/category
func (h *BusinessHandler) ReassignCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid business id",
		})
		return
	}

	var req ReassignCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid category id",
		})
		return
	}

	if err := h.businessService.ReassignCategory(id, categoryID); err != nil {
		if errors.Is(err, database.ErrBusinessNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Business record not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to reassign category",
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Category reassigned"})
}

// Delete handles DELETE /api/v1/business/:id (soft delete)
func (h *BusinessHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid business id",
		})
		return
	}

	if err := h.businessService.SoftDelete(id); err != nil {
		if errors.Is(err, database.ErrBusinessNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Business record not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to delete business record",
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Business record deleted"})
}

// Purge handles DELETE /api/v1/business/:id/purge (hard delete)
func (h *BusinessHandler) Purge(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid business id",
		})
		return
	}

	if err := h.businessService.Purge(id); err != nil {
		if errors.Is(err, database.ErrBusinessNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Business record not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to purge business record",
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Business record purged"})
}

// Get handles GET /api/v1/business/:id
func (h *BusinessHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid business id",
		})
		return
	}

	record, err := h.businessService.GetByID(id)
	if err != nil {
		if errors.Is(err, database.ErrBusinessNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Business record not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load business record",
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

// validationCode maps known validation errors to stable API codes
func validationCode(err error) string {
	switch {
	case errors.Is(err, validator.ErrInvalidOwnershipType):
		return "INVALID_OWNERSHIP_TYPE"
	case errors.Is(err, validator.ErrOwnerCountMismatch):
		return "OWNER_COUNT_MISMATCH"
	case errors.Is(err, validator.ErrInvalidOwnerGender):
		return "INVALID_OWNER_GENDER"
	case errors.Is(err, validator.ErrInvalidDirectorNationality):
		return "INVALID_DIRECTOR_NATIONALITY"
	case errors.Is(err, validator.ErrEmptyInkhundla):
		return "EMPTY_INKHUNDLA"
	case errors.Is(err, validator.ErrInvalidClassification):
		return "INVALID_CLASSIFICATION"
	case errors.Is(err, services.ErrRejectionReasonRequired):
		return "REJECTION_REASON_REQUIRED"
	case errors.Is(err, services.ErrRejectionReasonTooLong):
		return "REJECTION_REASON_TOO_LONG"
	case errors.Is(err, services.ErrInvalidStatusTransition):
		return "INVALID_STATUS_TRANSITION"
	default:
		return ""
	}
}
