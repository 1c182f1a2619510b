// Package repomanager wires repository constructors to a storage backend and
// exposes the schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/chatline/internal/dbx"
	"github.com/dmitrijs2005/chatline/internal/server/repositories/messages"
	"github.com/dmitrijs2005/chatline/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/chatline/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Messages(db dbx.DBTX) messages.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
