package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/intercomkey/internal/dbx"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/cameras"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/devices"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/logins"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a *sql.DB or a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Logins(db dbx.DBTX) logins.Repository
	Cameras(db dbx.DBTX) cameras.Repository
	Devices(db dbx.DBTX) devices.Repository
}
