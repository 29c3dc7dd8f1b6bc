// Package users provides the PostgreSQL-backed user repository. Remote OAuth
// tokens are encrypted with a TokenCipher on the way in and decrypted on the
// way out.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/google/uuid"
)

const selectUser = `SELECT id, username, password_hash, remote_access_token, remote_refresh_token, remote_token_expiry, created_at FROM users`

type PostgresRepository struct {
	db     dbx.DBTX
	cipher TokenCipher
}

func NewPostgresRepository(db dbx.DBTX, cipher TokenCipher) *PostgresRepository {
	return &PostgresRepository{db: db, cipher: cipher}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, username, password_hash)
         VALUES ($1, $2, $3)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query, user.ID, user.UserName, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", common.ErrNameConflict, err)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.queryOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	return r.queryOne(ctx, selectUser+` WHERE username = $1`, userName)
}

func (r *PostgresRepository) UpdateRemoteToken(ctx context.Context, userID, accessToken, refreshToken string, expiry time.Time) error {
	access, err := r.cipher.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := r.cipher.Encrypt(refreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET remote_access_token=$2, remote_refresh_token=$3, remote_token_expiry=$4 WHERE id=$1`,
		userID, access, refresh, sql.NullTime{Time: expiry, Valid: !expiry.IsZero()})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListConnected(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		selectUser+` WHERE remote_refresh_token <> '' OR remote_access_token <> '' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanUser(s scanner) (*models.User, error) {
	var (
		u       models.User
		access  string
		refresh string
		expiry  sql.NullTime
	)
	if err := s.Scan(&u.ID, &u.UserName, &u.PasswordHash, &access, &refresh, &expiry, &u.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if u.RemoteAccessToken, err = r.cipher.Decrypt(access); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if u.RemoteRefreshToken, err = r.cipher.Decrypt(refresh); err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	if expiry.Valid {
		u.RemoteTokenExpiry = expiry.Time
	}
	return &u, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	u, err := r.scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}
