// Package groups provides the PostgreSQL-backed work-item group repository.
package groups

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/google/uuid"
)

const selectGroup = `SELECT id, user_id, name, description, status, created_at FROM groups`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.Status == "" {
		group.Status = models.GroupActive
	}

	query := `
		INSERT INTO groups (id, user_id, name, description, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		group.ID, group.UserID, group.Name, group.Description, string(group.Status)).Scan(&group.CreatedAt)
	if err != nil {
		return wrapWriteError(err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, group *models.Group) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE groups SET name=$2, description=$3, status=$4 WHERE id=$1`,
		group.ID, group.Name, group.Description, string(group.Status))
	if err != nil {
		return wrapWriteError(err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE groups SET status='DELETED' WHERE id=$1 AND status='ACTIVE'`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.Group, error) {
	return r.queryOne(ctx, selectGroup+` WHERE user_id=$1 AND id=$2 AND status='ACTIVE'`, userID, id)
}

func (r *PostgresRepository) FindByName(ctx context.Context, userID, name string) (*models.Group, error) {
	return r.queryOne(ctx, selectGroup+` WHERE user_id=$1 AND name=$2 AND status='ACTIVE'`, userID, name)
}

func (r *PostgresRepository) ListActive(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := r.db.QueryContext(ctx, selectGroup+` WHERE user_id=$1 AND status='ACTIVE' ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select groups: %w", err)
	}
	defer rows.Close()

	var result []*models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGroup(s scanner) (*models.Group, error) {
	var (
		g      models.Group
		status string
	)
	if err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &status, &g.CreatedAt); err != nil {
		return nil, err
	}
	g.Status = models.GroupStatus(status)
	return &g, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Group, error) {
	g, err := scanGroup(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func wrapWriteError(err error) error {
	if dbx.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", common.ErrNameConflict, err)
	}
	return fmt.Errorf("db error: %w", err)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
