package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/khoslavarun/QuoteBuilder/internal/model"
	"github.com/khoslavarun/QuoteBuilder/internal/repository"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=8"`
	Role     *string `json:"role"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, actorID string, req CreateUserRequest) (UserResponse, error)
	GetUserByID(ctx context.Context, id string) (UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actorID string, id string, req UpdateUserRequest) (UserResponse, error)
	DeleteUser(ctx context.Context, actorID string, id string) error
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

type userService struct {
	repo      repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	log       *zap.Logger
	hashCost  int
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager, log *zap.Logger) UserService {
	return &userService{
		repo:      repo,
		auditRepo: auditRepo,
		txManager: txManager,
		log:       log,
		hashCost:  bcrypt.DefaultCost,
	}
}

func toUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func (s *userService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *userService) CreateUser(ctx context.Context, actorID string, req CreateUserRequest) (UserResponse, error) {
	email := normalizeEmail(req.Email)
	if !model.ValidRole(req.Role) {
		return UserResponse{}, fmt.Errorf("%w: role must be %s or %s", ErrInvalidArgument, model.RoleAdmin, model.RoleAnalyst)
	}
	if len(req.Password) < 8 {
		return UserResponse{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidArgument)
	}

	hashed, err := s.hash(req.Password)
	if err != nil {
		return UserResponse{}, err
	}
	user := &model.User{Email: email, Password: hashed, Role: req.Role}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureEmailFree(txCtx, email, nil); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actorID, model.ActionCreateUser, user.ID.String(), user.Email,
			map[string]string{"role": user.Role})
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user), nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (UserResponse, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, toUserResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actorID string, id string, req UpdateUserRequest) (UserResponse, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return UserResponse{}, err
	}

	changed := make([]string, 0, 3)
	if req.Role != nil && *req.Role != user.Role {
		if !model.ValidRole(*req.Role) {
			return UserResponse{}, fmt.Errorf("%w: role must be %s or %s", ErrInvalidArgument, model.RoleAdmin, model.RoleAnalyst)
		}
		user.Role = *req.Role
		changed = append(changed, "role")
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return UserResponse{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidArgument)
		}
		if user.Password, err = s.hash(*req.Password); err != nil {
			return UserResponse{}, err
		}
		changed = append(changed, "password")
	}
	emailChanged := false
	if req.Email != nil {
		if email := normalizeEmail(*req.Email); !strings.EqualFold(email, user.Email) {
			user.Email = email
			emailChanged = true
			changed = append(changed, "email")
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if emailChanged {
			if err := s.ensureEmailFree(txCtx, user.Email, user); err != nil {
				return err
			}
		}
		if err := s.repo.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actorID, model.ActionUpdateUser, user.ID.String(), user.Email,
			map[string]any{"changed": changed})
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, actorID string, id string) error {
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if user.ID.String() == actorID {
		return fmt.Errorf("%w: you cannot delete your own account", ErrForbidden)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, user.ID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actorID, model.ActionDeleteUser, user.ID.String(), user.Email,
			map[string]bool{"deleted": true})
	})
}

// EnsureAdmin creates an admin account for email unless a user with that
// address exists. It reports whether an account was created.
func (s *userService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("look up admin: %w", err)
	}

	hashed, err := s.hash(password)
	if err != nil {
		return false, err
	}
	admin := &model.User{Email: email, Password: hashed, Role: model.RoleAdmin}
	if err := s.repo.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("admin account created", zap.String("email", email))
	return true, nil
}

func (s *userService) find(ctx context.Context, id string) (*model.User, error) {
	userID, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound("user", err)
	}
	return user, nil
}

func (s *userService) ensureEmailFree(ctx context.Context, email string, self *model.User) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if self != nil && existing.ID == self.ID {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
