package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/workhub/internal/dbx"
)

// withTx is a seam so tests can run service operations without a database.
var withTx = func(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, db, nil, fn)
}
