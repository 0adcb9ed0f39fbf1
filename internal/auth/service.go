package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/staff-management/internal"
	"golang.org/x/crypto/bcrypt"
)

// Credentials is what login needs to know about a user.
type Credentials struct {
	UserID       int64
	Email        string
	PasswordHash string
	Status       string
	IsActive     bool
}

// CanLogin is true only for ACTIVE, enabled users that have set a password.
func (c *Credentials) CanLogin() bool {
	return c.Status == "ACTIVE" && c.IsActive && c.PasswordHash != ""
}

type RepositoryAPI interface {
	// GetCredentials returns nil, nil when no user has the email.
	GetCredentials(ctx context.Context, email string) (*Credentials, error)
	GetActor(ctx context.Context, userID int64) (*internal.Actor, error)
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(userID int64, email string) (string, time.Time, error)
	GenerateRefreshToken(userID int64, email string) (string, time.Time, error)
	ValidateAccessToken(token string) (*Claims, error)
	ValidateRefreshToken(token string) (*Claims, error)
}

type Service struct {
	repo   RepositoryAPI
	tokens TokenGeneratorAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, tokens TokenGeneratorAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, logger: logger}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	creds, err := s.repo.GetCredentials(ctx, dto.Email)
	if err != nil {
		return AuthTokens{}, err
	}
	if creds == nil || creds.PasswordHash == "" {
		s.logger.Warn("login rejected", "email", dto.Email, "reason", "unknown user or no password")
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login rejected", "email", dto.Email, "reason", "password mismatch")
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	if !creds.CanLogin() {
		s.logger.Warn("login rejected", "user_id", creds.UserID, "status", creds.Status, "is_active", creds.IsActive)
		return AuthTokens{}, internal.ErrUserInactive
	}

	s.logger.Info("user logged in", "user_id", creds.UserID)
	return s.issue(creds.UserID, creds.Email)
}

// RefreshTokens validates refresh token and returns new tokens
func (s *Service) RefreshTokens(ctx context.Context, dto RefreshTokenDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	claims, err := s.tokens.ValidateRefreshToken(dto.RefreshToken)
	if err != nil {
		return AuthTokens{}, err
	}
	// deactivated users lose the session at the next refresh
	if _, err := s.repo.GetActor(ctx, claims.UserID); err != nil {
		return AuthTokens{}, err
	}
	return s.issue(claims.UserID, claims.Email)
}

// ActorFromToken resolves a bearer access token to the acting user with the
// permissions of their current role.
func (s *Service) ActorFromToken(ctx context.Context, token string) (*internal.Actor, error) {
	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	return s.repo.GetActor(ctx, claims.UserID)
}

func (s *Service) issue(userID int64, email string) (AuthTokens, error) {
	access, expiresAt, err := s.tokens.GenerateAccessToken(userID, email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}
	refresh, _, err := s.tokens.GenerateRefreshToken(userID, email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}
	return AuthTokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}
