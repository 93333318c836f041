package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/khoslavarun/QuoteBuilder/internal/middleware"
	"github.com/khoslavarun/QuoteBuilder/internal/repository"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// TokenRevoker remembers revoked token ids until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
	Me(ctx context.Context, userID string) (UserResponse, error)
}

type authService struct {
	users   repository.UserRepository
	issuer  *middleware.TokenIssuer
	revoker TokenRevoker
	log     *zap.Logger
	now     func() time.Time
}

func NewAuthService(users repository.UserRepository, issuer *middleware.TokenIssuer, revoker TokenRevoker, log *zap.Logger) AuthService {
	return &authService{users: users, issuer: issuer, revoker: revoker, log: log, now: time.Now}
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginResponse{}, ErrInvalidCredentials
		}
		return LoginResponse{}, fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return LoginResponse{}, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(user.ID.String(), user.Role, 0)
	if err != nil {
		return LoginResponse{}, err
	}

	s.log.Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("role", user.Role))
	return LoginResponse{Token: token.Value, ExpiresAt: token.ExpiresAt, User: toUserResponse(user)}, nil
}

// Logout revokes the token until the moment it would have expired.
func (s *authService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	return s.revoker.Revoke(ctx, tokenID, expiresAt.Sub(s.now()))
}

func (s *authService) Me(ctx context.Context, userID string) (UserResponse, error) {
	id, err := parseID("user", userID)
	if err != nil {
		return UserResponse{}, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return UserResponse{}, notFound("user", err)
	}
	return toUserResponse(user), nil
}
