// Package users provides persistence for account rows.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/chatline/internal/server/models"
)

type Repository interface {
	// Create inserts a new user. Email/phone uniqueness is enforced by the
	// storage layer; violations surface as common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdateVerification replaces the outstanding code and expiry.
	UpdateVerification(ctx context.Context, id string, code string, expiry time.Time) error
	// MarkVerified sets email_verified and clears the code and expiry in one
	// statement.
	MarkVerified(ctx context.Context, id string) error
	// Delete removes the user; the user's messages cascade at the schema level.
	Delete(ctx context.Context, id string) error
}
