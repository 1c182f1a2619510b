// Package messages provides persistence for chat message rows.
package messages

import (
	"context"

	"github.com/dmitrijs2005/chatline/internal/server/models"
)

type Repository interface {
	// Create appends a message and returns it fully materialized, including
	// the server-assigned id, commit timestamp, and the sender projection.
	Create(ctx context.Context, senderID string, text string) (*models.Message, error)
	// ListRecent returns the newest limit messages, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.Message, error)
}
