// Package sessions maps opaque session tokens to user identities. Tokens
// are random, carry no claims, and live in persistent storage so they
// survive process restarts.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/chatline/internal/common"
	sessionsrepo "github.com/dmitrijs2005/chatline/internal/server/repositories/sessions"
)

const tokenBytes = 32

type Manager struct {
	store    sessionsrepo.Repository
	validity time.Duration

	// now is a seam so expiry checks are testable.
	now func() time.Time
}

func NewManager(store sessionsrepo.Repository, validity time.Duration) *Manager {
	return &Manager{store: store, validity: validity, now: time.Now}
}

// Create issues a new session for userID and returns the opaque token.
func (m *Manager) Create(ctx context.Context, userID string) (string, error) {
	token, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return "", common.ErrorInternal
	}
	if err := m.store.Create(ctx, token, userID, m.validity); err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// Resolve returns the owning user id for a live token. Expired sessions are
// deleted lazily here and reported as ErrSessionExpired; unknown tokens as
// ErrSessionNotFound.
func (m *Manager) Resolve(ctx context.Context, token string) (string, error) {
	session, err := m.store.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrSessionNotFound
		}
		return "", common.ErrorInternal
	}

	if m.now().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, token)
		return "", common.ErrSessionExpired
	}

	return session.UserID, nil
}

// Destroy invalidates a session. Destroying an absent session is a no-op.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if err := m.store.Delete(ctx, token); err != nil {
		return common.ErrorInternal
	}
	return nil
}
