package groups

import (
	"context"

	"github.com/dmitrijs2005/workhub/internal/server/models"
)

// Repository persists groups. Name lookups and listings only see ACTIVE
// groups; soft-deleted rows stay in the table.
type Repository interface {
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group) error
	SoftDelete(ctx context.Context, id string) error
	GetByID(ctx context.Context, userID, id string) (*models.Group, error)
	FindByName(ctx context.Context, userID, name string) (*models.Group, error)
	ListActive(ctx context.Context, userID string) ([]*models.Group, error)
}
