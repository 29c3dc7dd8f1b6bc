package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/workhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	UpdateRemoteToken(ctx context.Context, userID, accessToken, refreshToken string, expiry time.Time) error
	// ListConnected returns users holding remote credentials.
	ListConnected(ctx context.Context) ([]*models.User, error)
}

// TokenCipher seals remote tokens before they reach the database.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
