// Package sessions provides persistence for session tokens. Two backends
// exist: a Postgres table and a Redis keyspace. Either way the store is a
// plain token → (user, expiry) lookup, never joined with other tables.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/chatline/internal/server/models"
)

type Repository interface {
	// Create stores a session for userID with an expiry of now+validity.
	Create(ctx context.Context, token string, userID string, validity time.Duration) error
	// Find returns the session row for the given token, or
	// common.ErrorNotFound. Expiry is not checked here; the session manager
	// owns that comparison.
	Find(ctx context.Context, token string) (*models.Session, error)
	// Delete removes a session. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error
}
