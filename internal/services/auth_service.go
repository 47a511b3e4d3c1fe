package services

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/eswatinicommerce/msme-registry-backend/internal/database"
	"github.com/eswatinicommerce/msme-registry-backend/pkg/jwt"
)

// ErrInvalidCredentials indicates a failed login. Unknown email and wrong
// password produce the same error.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService authenticates registry accounts and issues tokens
type AuthService struct {
	accounts *database.AccountRepository
	tokens   *jwt.Service
}

// NewAuthService creates a new auth service
func NewAuthService(accounts *database.AccountRepository, tokens *jwt.Service) *AuthService {
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
	}
}

// LoginResult carries the issued tokens
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Roles        []string
}

// Login verifies the password and issues an access/refresh token pair
func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	account, err := s.accounts.GetByEmail(email)
	if err != nil {
		if errors.Is(err, database.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if account.Status != "active" {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.tokens.GenerateAccessToken(account.ID, account.Email, account.Roles)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Roles:        account.Roles,
	}, nil
}
