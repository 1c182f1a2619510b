package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/chatline/internal/common"
	"github.com/dmitrijs2005/chatline/internal/dbx"
	"github.com/dmitrijs2005/chatline/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, senderID string, text string) (*models.Message, error) {

	// Insert and fetch the denormalized sender in one round trip.
	query :=
		`WITH inserted AS (
		    INSERT INTO messages (text, sender_id)
		    VALUES ($1, $2)
		    RETURNING id, text, sender_id, created_at
		 )
		 SELECT i.id, i.text, i.sender_id, i.created_at, u.email, u.name
		 FROM inserted i
		 JOIN users u ON u.id = i.sender_id
		 `

	m := &models.Message{}
	err := r.db.QueryRowContext(ctx, query, text, senderID).
		Scan(&m.ID, &m.Text, &m.SenderID, &m.CreatedAt, &m.Sender.Email, &m.Sender.Name)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Sender row vanished between gate and insert.
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	m.Sender.ID = m.SenderID
	return m, nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*models.Message, error) {

	query :=
		`SELECT m.id, m.text, m.sender_id, m.created_at, u.email, u.name
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 ORDER BY m.id DESC
		 LIMIT $1
		 `

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.Text, &m.SenderID, &m.CreatedAt, &m.Sender.Email, &m.Sender.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		m.Sender.ID = m.SenderID
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
