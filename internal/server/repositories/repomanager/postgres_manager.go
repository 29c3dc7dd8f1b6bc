package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/server/migrations"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/groupfiles"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/groups"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/labels"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/schedules"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories. The token
// cipher is handed to the users repository so remote credentials are sealed
// at rest.
type PostgresRepositoryManager struct {
	cipher users.TokenCipher
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db, m.cipher)
}

func (m *PostgresRepositoryManager) Labels(db dbx.DBTX) labels.Repository {
	return labels.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Groups(db dbx.DBTX) groups.Repository {
	return groups.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) GroupFiles(db dbx.DBTX) groupfiles.Repository {
	return groupfiles.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Schedules(db dbx.DBTX) schedules.Repository {
	return schedules.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded goose migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager(cipher users.TokenCipher) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{cipher: cipher}
}
