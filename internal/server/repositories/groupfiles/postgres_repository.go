// Package groupfiles stores metadata of files attached to groups. The file
// contents live in object storage.
package groupfiles

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.GroupFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.UploadStatus == "" {
		file.UploadStatus = "pending"
	}

	query := `
		INSERT INTO group_files (id, group_id, user_id, file_name, storage_key, upload_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.GroupID, file.UserID, file.FileName, file.StorageKey, file.UploadStatus).Scan(&file.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountByGroup(ctx context.Context, groupID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_files WHERE group_id=$1`, groupID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListByGroup(ctx context.Context, groupID string) ([]*models.GroupFile, error) {
	query := `SELECT id, group_id, user_id, file_name, storage_key, upload_status, created_at
		FROM group_files WHERE group_id=$1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.GroupFile
	for rows.Next() {
		var f models.GroupFile
		if err := rows.Scan(&f.ID, &f.GroupID, &f.UserID, &f.FileName, &f.StorageKey, &f.UploadStatus, &f.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) MarkUploaded(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE group_files SET upload_status='completed' WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return common.ErrorNotFound
	}
	return nil
}
