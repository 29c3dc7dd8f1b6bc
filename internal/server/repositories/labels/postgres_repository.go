// Package labels provides the PostgreSQL-backed label repository.
package labels

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

const selectLabel = `SELECT id, user_id, name, color, external_label_id, is_from_remote, display_order, is_default, created_at FROM labels`

// PostgresRepository implements label storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts label, assigning an ID when it has none.
func (r *PostgresRepository) Create(ctx context.Context, label *models.Label) error {
	if label.ID == "" {
		label.ID = uuid.NewString()
	}

	query := `
		INSERT INTO labels (id, user_id, name, color, external_label_id, is_from_remote, display_order, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		label.ID, label.UserID, label.Name, label.Color, nullString(label.ExternalLabelID),
		label.IsFromRemote, label.DisplayOrder, label.IsDefault,
	).Scan(&label.CreatedAt)
	if err != nil {
		return wrapWriteError(err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, label *models.Label) error {
	query := `
		UPDATE labels SET name=$2, color=$3, external_label_id=$4, is_from_remote=$5, display_order=$6
		WHERE id=$1
	`
	res, err := r.db.ExecContext(ctx, query,
		label.ID, label.Name, label.Color, nullString(label.ExternalLabelID), label.IsFromRemote, label.DisplayOrder)
	if err != nil {
		return wrapWriteError(err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM labels WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.Label, error) {
	return r.queryOne(ctx, selectLabel+` WHERE user_id=$1 AND id=$2`, userID, id)
}

func (r *PostgresRepository) FindByExternalID(ctx context.Context, userID, externalID string) (*models.Label, error) {
	return r.queryOne(ctx, selectLabel+` WHERE user_id=$1 AND external_label_id=$2`, userID, externalID)
}

func (r *PostgresRepository) FindByName(ctx context.Context, userID, name string) (*models.Label, error) {
	return r.queryOne(ctx, selectLabel+` WHERE user_id=$1 AND name=$2`, userID, name)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Label, error) {
	return r.queryMany(ctx, selectLabel+` WHERE user_id=$1 ORDER BY display_order, name`, userID)
}

func (r *PostgresRepository) ListRemote(ctx context.Context, userID string) ([]*models.Label, error) {
	return r.queryMany(ctx,
		selectLabel+` WHERE user_id=$1 AND is_from_remote AND external_label_id IS NOT NULL`, userID)
}

func (r *PostgresRepository) MaxDisplayOrder(ctx context.Context, userID string) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(display_order), 0) FROM labels WHERE user_id=$1`, userID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return max, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLabel(s scanner) (*models.Label, error) {
	var (
		l          models.Label
		externalID sql.NullString
	)
	if err := s.Scan(&l.ID, &l.UserID, &l.Name, &l.Color, &externalID,
		&l.IsFromRemote, &l.DisplayOrder, &l.IsDefault, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.ExternalLabelID = externalID.String
	return &l, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Label, error) {
	l, err := scanLabel(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.Label, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select labels: %w", err)
	}
	defer rows.Close()

	var result []*models.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
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
