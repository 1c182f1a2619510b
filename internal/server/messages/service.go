// Package messages owns message creation and the recent-history window.
package messages

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dmitrijs2005/chatline/internal/common"
	"github.com/dmitrijs2005/chatline/internal/server/models"
	messagesrepo "github.com/dmitrijs2005/chatline/internal/server/repositories/messages"
)

const (
	maxTextLength = 1000
	defaultLimit  = 50
	maxLimit      = 200
)

// Broadcaster pushes a committed message to all currently connected
// clients. Implementations must not fail the caller.
type Broadcaster interface {
	Publish(message *models.Message)
}

type Service struct {
	repo        messagesrepo.Repository
	broadcaster Broadcaster

	// commitMu serializes commit+publish so fanout order always equals
	// commit order across concurrent Create calls.
	commitMu sync.Mutex
}

func NewService(repo messagesrepo.Repository, broadcaster Broadcaster) *Service {
	return &Service{repo: repo, broadcaster: broadcaster}
}

// Create validates, persists, and fans out one message. The timestamp is
// server-assigned at commit; fanout happens only after a successful commit
// and never fails the call.
func (s *Service) Create(ctx context.Context, senderID string, text string) (*models.Message, error) {

	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < 1 || n > maxTextLength {
		return nil, common.ErrorValidation
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	message, err := s.repo.Create(ctx, senderID, text)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	s.broadcaster.Publish(message)

	return message, nil
}

// List returns the most recent messages in ascending commit order. The
// limit is clamped to (0, 200] with a default of 50.
func (s *Service) List(ctx context.Context, limit int) ([]*models.Message, error) {

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	recent, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, common.ErrorInternal
	}

	// The repository returns newest first; clients want chronological order.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	return recent, nil
}
