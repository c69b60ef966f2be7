// Package repomanager vends repository implementations bound to a DBTX so
// services can run several repositories inside one transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/memorylane/internal/dbx"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/capsules"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/comments"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/invitations"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Capsules(db dbx.DBTX) capsules.Repository
	Invitations(db dbx.DBTX) invitations.Repository
	Comments(db dbx.DBTX) comments.Repository
}
