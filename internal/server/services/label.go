package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/logging"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/reconcile"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/repomanager"
)

// LabelService is the user-facing side of labels. Every change is mirrored
// onto the group of the same name in the same transaction.
type LabelService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mirror      *reconcile.Mirror
	log         logging.Logger
}

func NewLabelService(db *sql.DB, m repomanager.RepositoryManager, mirror *reconcile.Mirror, log logging.Logger) *LabelService {
	return &LabelService{db: db, repomanager: m, mirror: mirror, log: log.With("module", "labels")}
}

func (s *LabelService) List(ctx context.Context, userID string) ([]*models.Label, error) {
	return s.repomanager.Labels(s.db).ListByUser(ctx, userID)
}

// Create adds a user label. An empty color gets the default display color.
func (s *LabelService) Create(ctx context.Context, userID, name, color string) (*models.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: label name is required", common.ErrorValidation)
	}
	if color == "" {
		color = reconcile.DefaultColor
	}

	label := &models.Label{UserID: userID, Name: name, Color: color}
	err := withTx(reconcile.WithGuard(ctx), s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Labels(tx)
		order, err := repo.MaxDisplayOrder(ctx, userID)
		if err != nil {
			return err
		}
		label.DisplayOrder = order + 1
		if err := repo.Create(ctx, label); err != nil {
			return err
		}
		return s.mirror.Dispatch(ctx, tx, reconcile.Event{Kind: reconcile.LabelCreated, UserID: userID, Name: name})
	})
	if err != nil {
		return nil, err
	}
	return label, nil
}

// Update renames and/or recolors a label. Empty arguments keep the current value.
func (s *LabelService) Update(ctx context.Context, userID, id, name, color string) (*models.Label, error) {
	name = strings.TrimSpace(name)

	var label *models.Label
	err := withTx(reconcile.WithGuard(ctx), s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Labels(tx)
		var err error
		label, err = repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}

		oldName := label.Name
		if name != "" {
			label.Name = name
		}
		if color != "" {
			label.Color = color
		}
		if err := repo.Update(ctx, label); err != nil {
			return err
		}
		if label.Name == oldName {
			return nil
		}
		return s.mirror.Dispatch(ctx, tx, reconcile.Event{
			Kind: reconcile.LabelRenamed, UserID: userID, Name: label.Name, OldName: oldName,
		})
	})
	if err != nil {
		return nil, err
	}
	return label, nil
}

// Delete removes a label. Default labels are refused with common.ErrDefaultLabel.
func (s *LabelService) Delete(ctx context.Context, userID, id string) error {
	return withTx(reconcile.WithGuard(ctx), s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Labels(tx)
		label, err := repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if label.IsDefault {
			return common.ErrDefaultLabel
		}
		if err := repo.Delete(ctx, label.ID); err != nil {
			return err
		}
		s.log.Info(ctx, "label deleted", "user_id", userID, "name", label.Name)
		return s.mirror.Dispatch(ctx, tx, reconcile.Event{Kind: reconcile.LabelDeleted, UserID: userID, Name: label.Name})
	})
}
