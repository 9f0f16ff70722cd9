package service

import (
	"context"
	"log/slog"

	"github.com/tandalabs/tanda/internal/auth"
	"github.com/tandalabs/tanda/internal/models"
)

// AuthService handles account registration and login, issuing JWTs whose
// subject is the account's ledger address.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// Register creates a new account and returns it with a session token.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*models.Account, string, error) {
	s.logger.Info("Register request", "email", email)

	if email == "" || displayName == "" {
		return nil, "", auth.ErrInvalidCredentials
	}

	account, err := s.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		s.logger.Error("Registration failed", "email", email, "error", err)
		return nil, "", err
	}

	token, err := s.jwtManager.Generate(account)
	if err != nil {
		s.logger.Error("Failed to generate token", "address", account.ID, "error", err)
		return nil, "", err
	}

	s.logger.Info("Account registered", "address", account.ID, "email", account.Email)
	return account, token, nil
}

// Login authenticates an account and returns it with a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Account, string, error) {
	s.logger.Info("Login request", "email", email)

	if email == "" || password == "" {
		return nil, "", auth.ErrInvalidCredentials
	}

	account, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		return nil, "", auth.ErrInvalidCredentials
	}

	token, err := s.jwtManager.Generate(account)
	if err != nil {
		s.logger.Error("Failed to generate token", "address", account.ID, "error", err)
		return nil, "", err
	}

	s.logger.Info("Account logged in", "address", account.ID, "email", account.Email)
	return account, token, nil
}
