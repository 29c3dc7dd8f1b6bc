package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/reconcile"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/repomanager"
)

// Syncer runs one user's remote sync.
type Syncer interface {
	SyncUser(ctx context.Context, userID string) (reconcile.Result, error)
}

// ScheduleService lists schedule records and triggers on-demand syncs.
type ScheduleService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	syncer      Syncer
}

func NewScheduleService(db *sql.DB, m repomanager.RepositoryManager, syncer Syncer) *ScheduleService {
	return &ScheduleService{db: db, repomanager: m, syncer: syncer}
}

// List returns the user's schedules overlapping [from, to).
func (s *ScheduleService) List(ctx context.Context, userID string, from, to time.Time) ([]*models.Schedule, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: empty time range", common.ErrorValidation)
	}
	return s.repomanager.Schedules(s.db).ListByUser(ctx, userID, from, to)
}

func (s *ScheduleService) Sync(ctx context.Context, userID string) (reconcile.Result, error) {
	return s.syncer.SyncUser(ctx, userID)
}
