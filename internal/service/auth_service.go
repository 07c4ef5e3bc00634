// Package service implements the application's business rules on top of the repositories.
package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"fruitmap/internal/auth"
	"fruitmap/internal/middleware"
	"fruitmap/internal/models"
	"fruitmap/internal/observability"
	"fruitmap/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt cost used for stored passwords.
const PasswordHashCost = 12

// Login failure messages.
const (
	ErrInvalidCredentials = "Invalid email or password"
	ErrAccountDeactivated = "Account is deactivated"
)

type AuthService struct {
	users    repository.UserRepository
	tokens   *auth.TokenManager
	hashCost int

	guardOnce sync.Once
	guardHash []byte
}

type RegisterInput struct {
	Email    string
	Password string
	Username string
	FullName *string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	User  *models.User
	Token string
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens, hashCost: PasswordHashCost}
}

// Register creates an account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	existing, err := s.users.FindByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError(repository.ErrUserExists)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hashed),
		Username: username,
		FullName: in.FullName,
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	middleware.Logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// Login checks the credentials, then the account state. Unknown email and wrong
// password produce the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.timingGuard(), []byte(in.Password))
		observability.AuthFailures.WithLabelValues("invalid_credentials").Inc()
		return nil, models.NewUnauthorizedError(ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		observability.AuthFailures.WithLabelValues("invalid_credentials").Inc()
		return nil, models.NewUnauthorizedError(ErrInvalidCredentials)
	}

	if !user.IsActive {
		observability.AuthFailures.WithLabelValues("deactivated").Inc()
		return nil, models.NewForbiddenError(ErrAccountDeactivated)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// timingGuard is compared against when the email is unknown. It is hashed at
// the cost of stored passwords so both failure paths take the same time.
func (s *AuthService) timingGuard() []byte {
	s.guardOnce.Do(func() {
		s.guardHash, _ = bcrypt.GenerateFromPassword([]byte("fruit-map-timing-guard"), s.hashCost)
	})
	return s.guardHash
}

// VerifyToken returns the identity in token, or auth.ErrExpiredToken / auth.ErrInvalidToken.
func (s *AuthService) VerifyToken(token string) (*auth.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		observability.AuthFailures.WithLabelValues("token").Inc()
		return nil, err
	}
	return claims, nil
}

// GetUserByID returns nil, nil for an unknown id.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// IsAdmin reports whether userID holds the admin role.
func (s *AuthService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}
