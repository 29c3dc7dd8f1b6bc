package groupfiles

import (
	"context"

	"github.com/dmitrijs2005/workhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.GroupFile) error
	CountByGroup(ctx context.Context, groupID string) (int, error)
	ListByGroup(ctx context.Context, groupID string) ([]*models.GroupFile, error)
	MarkUploaded(ctx context.Context, id string) error
}
