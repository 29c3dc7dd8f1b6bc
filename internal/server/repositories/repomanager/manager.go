// Package repomanager vends repositories bound to a dbx.DBTX so services can
// run several repositories inside one transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/groupfiles"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/groups"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/labels"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/schedules"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Labels(db dbx.DBTX) labels.Repository
	Groups(db dbx.DBTX) groups.Repository
	GroupFiles(db dbx.DBTX) groupfiles.Repository
	Schedules(db dbx.DBTX) schedules.Repository
}
