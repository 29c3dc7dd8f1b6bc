package schedules

import (
	"context"
	"time"

	"github.com/dmitrijs2005/workhub/internal/server/models"
)

// Repository persists schedule records and their label associations.
type Repository interface {
	// Create inserts the schedule together with its LabelIDs.
	Create(ctx context.Context, s *models.Schedule) error
	// Update writes scalar fields and the group; labels are left untouched.
	Update(ctx context.Context, s *models.Schedule) error
	ReplaceLabels(ctx context.Context, scheduleID string, labelIDs []string) error
	Delete(ctx context.Context, id string) error
	FindByExternalID(ctx context.Context, userID, externalID string) (*models.Schedule, error)
	// ListRemoteExternalIDs maps external event id to schedule id for the
	// user's remote-sourced schedules.
	ListRemoteExternalIDs(ctx context.Context, userID string) (map[string]string, error)
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]*models.Schedule, error)
}
