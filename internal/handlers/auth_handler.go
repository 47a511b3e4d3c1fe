package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eswatinicommerce/msme-registry-backend/internal/services"
	"github.com/eswatinicommerce/msme-registry-backend/internal/utils"
)

// AuthHandler handles authentication and credential recovery requests
type AuthHandler struct {
	authService     *services.AuthService
	recoveryService *services.RecoveryService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, recoveryService *services.RecoveryService) *AuthHandler {
	return &AuthHandler{
		authService:     authService,
		recoveryService: recoveryService,
	}
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token pair
type LoginResponse struct {
	Message      string   `json:"message"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Roles        []string `json:"roles"`
}

// RequestOTPRequest starts a password recovery flow
type RequestOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyOTPRequest submits the emailed code
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// VerifyOTPResponse carries the single-use reset token
type VerifyOTPResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"reset_token"`
}

// ResetPasswordRequest consumes the reset token
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	result, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid email or password",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Login failed",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Message:      "Login successful",
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Roles:        result.Roles,
	})
}

// RequestOTP handles POST /api/v1/auth/forgot-password/request-otp.
// The response is identical whether or not the email has an account, so the
// endpoint cannot be used to enumerate accounts.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	ip := utils.GetRealIP(c)
	device := utils.DeviceSummary(c.Request.UserAgent())

	if err := h.recoveryService.RequestOTP(req.Email, ip, device); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process request",
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Message: "If the email is registered, a verification code has been sent",
	})
}

// VerifyOTP handles POST /api/v1/auth/forgot-password/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	token, err := h.recoveryService.VerifyOTP(req.Email, req.Code)
	if err != nil {
		h.writeRecoveryError(c, err)
		return
	}

	c.JSON(http.StatusOK, VerifyOTPResponse{
		Message:    "Code verified",
		ResetToken: token,
	})
}

// ResetPassword handles POST /api/v1/auth/forgot-password/reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	if err := h.recoveryService.ResetPassword(req.Email, req.Token, req.NewPassword); err != nil {
		h.writeRecoveryError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Password has been reset"})
}

// writeRecoveryError maps recovery failures to responses without leaking
// which check failed
func (h *AuthHandler) writeRecoveryError(c *gin.Context, err error) {
	var rateErr *services.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:   "too_many_attempts",
			Message: rateErr.Message,
			Code:    "TOO_MANY_ATTEMPTS",
		})
	case errors.Is(err, services.ErrExpired):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "expired",
			Message: "The code or token has expired",
			Code:    "EXPIRED",
		})
	case errors.Is(err, services.ErrInvalid):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid",
			Message: "Invalid code or token",
			Code:    "INVALID",
		})
	case errors.Is(err, services.ErrPasswordTooShort):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    "PASSWORD_TOO_SHORT",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process request",
		})
	}
}
