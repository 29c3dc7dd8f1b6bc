package labels

import (
	"context"

	"github.com/dmitrijs2005/workhub/internal/server/models"
)

// Repository persists labels. Lookups that find nothing return
// common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, label *models.Label) error
	Update(ctx context.Context, label *models.Label) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, userID, id string) (*models.Label, error)
	FindByExternalID(ctx context.Context, userID, externalID string) (*models.Label, error)
	FindByName(ctx context.Context, userID, name string) (*models.Label, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Label, error)
	// ListRemote returns labels with IsFromRemote set and an external id.
	ListRemote(ctx context.Context, userID string) ([]*models.Label, error)
	MaxDisplayOrder(ctx context.Context, userID string) (int, error)
}
