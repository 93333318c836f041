package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateName      = errors.New("name already exists")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrForbidden          = errors.New("operation not permitted")
)

// notFound maps a missing row onto ErrNotFound and wraps anything else.
func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func parseID(what, id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s id %q", ErrInvalidArgument, what, id)
	}
	return parsed, nil
}

// actorID is the acting user's id, or nil for operator and seed actions.
func actorID(userID string) *uuid.UUID {
	if parsed, err := uuid.Parse(userID); err == nil {
		return &parsed
	}
	return nil
}

// EventPublisher broadcasts change events to connected clients.
type EventPublisher interface {
	Publish(event string, data any)
}
