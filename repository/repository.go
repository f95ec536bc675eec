// Package repository persists try-on records and user accounts in MongoDB or PostgreSQL.
package repository

import (
	"context"
	"errors"

	"github.com/raushankrgupta/fitly-tryon/models"
)

var (
	// ErrNotPending is returned when an update targets a record that does not exist or has
	// already reached a terminal status.
	ErrNotPending = errors.New("try-on record not found or already finalized")
	// ErrEmailTaken is returned by CreateUser when the email is registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned by FindUserByEmail when nobody uses the email.
	ErrUserNotFound = errors.New("user not found")
)

// TryOnRepository is the try-on record table. Implementations satisfy tryon.RecordStore.
type TryOnRepository interface {
	Insert(ctx context.Context, rec *models.TryOn) error
	Update(ctx context.Context, id string, upd models.TryOnUpdate) error
	ListByUser(ctx context.Context, userID string, status models.TryOnStatus, page, limit int) ([]models.TryOn, int64, error)
}

// UserRepository stores registered accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Store bundles both repositories of one backend.
type Store interface {
	TryOnRepository
	UserRepository
	Close(ctx context.Context) error
}

// pageBounds normalizes pagination input and returns the offset.
func pageBounds(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}
