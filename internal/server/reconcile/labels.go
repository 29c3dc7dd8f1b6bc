package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/logging"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/repomanager"
)

// Stats counts what one reconciler phase did. Failed counts items that were
// skipped, including deletions that did not go through.
type Stats struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// runItem isolates one item inside a phase transaction.
var runItem = dbx.Savepoint

// LabelReconciler imports remote categories as labels.
type LabelReconciler struct {
	repos  repomanager.RepositoryManager
	mirror *Mirror
	log    logging.Logger
}

func NewLabelReconciler(repos repomanager.RepositoryManager, mirror *Mirror, log logging.Logger) *LabelReconciler {
	return &LabelReconciler{repos: repos, mirror: mirror, log: log.With("module", "label_reconciler")}
}

// Reconcile applies remote to the user's labels. Item failures are logged
// and skipped; the returned error is reserved for failures that leave the
// phase unable to continue.
func (r *LabelReconciler) Reconcile(ctx context.Context, tx dbx.DBTX, userID string, remote []models.RemoteLabel) (Stats, error) {
	var stats Stats
	remoteIDs := idSet(remote, func(l models.RemoteLabel) string { return l.ExternalID })

	for _, rl := range remote {
		var outcome itemOutcome
		err := runItem(ctx, tx, func() error {
			var err error
			outcome, err = r.reconcileOne(ctx, tx, userID, rl, remoteIDs)
			return err
		})
		if err != nil {
			stats.Failed++
			r.log.Warn(ctx, "remote label skipped", "user_id", userID, "external_id", rl.ExternalID, "name", rl.Name, "error", err)
			continue
		}
		stats.add(outcome)
	}

	local, err := r.repos.Labels(tx).ListRemote(ctx, userID)
	if err != nil {
		return stats, fmt.Errorf("list remote labels: %w", err)
	}
	byExternalID := make(map[string]*models.Label, len(local))
	localIDs := make(map[string]struct{}, len(local))
	for _, l := range local {
		if l.IsDefault {
			continue
		}
		byExternalID[l.ExternalLabelID] = l
		localIDs[l.ExternalLabelID] = struct{}{}
	}

	for externalID := range ComputeRemovals(remoteIDs, localIDs) {
		label := byExternalID[externalID]
		err := runItem(ctx, tx, func() error {
			if err := r.repos.Labels(tx).Delete(ctx, label.ID); err != nil {
				return err
			}
			return r.mirror.Dispatch(ctx, tx, Event{Kind: LabelDeleted, UserID: userID, Name: label.Name})
		})
		if err != nil {
			stats.Failed++
			r.log.Warn(ctx, "label deletion failed", "user_id", userID, "external_id", externalID, "error", err)
			continue
		}
		stats.Deleted++
	}

	r.log.Info(ctx, "labels reconciled", "user_id", userID,
		"created", stats.Created, "updated", stats.Updated, "deleted", stats.Deleted, "failed", stats.Failed)
	return stats, nil
}

type itemOutcome int

const (
	unchanged itemOutcome = iota
	created
	updated
)

func (s *Stats) add(o itemOutcome) {
	switch o {
	case created:
		s.Created++
	case updated:
		s.Updated++
	}
}

func (r *LabelReconciler) reconcileOne(ctx context.Context, tx dbx.DBTX, userID string, rl models.RemoteLabel, remoteIDs map[string]struct{}) (itemOutcome, error) {
	if rl.ExternalID == "" || rl.Name == "" {
		return unchanged, errors.New("remote label without id or name")
	}
	repo := r.repos.Labels(tx)
	color := MapColor(rl.ColorToken)

	label, err := findOptional(repo.FindByExternalID(ctx, userID, rl.ExternalID))
	if err != nil {
		return unchanged, err
	}
	if label != nil {
		if label.Name == rl.Name && label.Color == color {
			return unchanged, nil
		}
		oldName := label.Name
		label.Name, label.Color = rl.Name, color
		if err := repo.Update(ctx, label); err != nil {
			return unchanged, err
		}
		if oldName != rl.Name {
			if err := r.mirror.Dispatch(ctx, tx, Event{Kind: LabelRenamed, UserID: userID, Name: rl.Name, OldName: oldName}); err != nil {
				return unchanged, err
			}
		}
		return updated, nil
	}

	label, err = findOptional(repo.FindByName(ctx, userID, rl.Name))
	if err != nil {
		return unchanged, err
	}
	if label != nil {
		// A label still linked to another live remote category is not adopted.
		if _, live := remoteIDs[label.ExternalLabelID]; live && label.ExternalLabelID != "" {
			return unchanged, fmt.Errorf("%w: %q is linked to remote label %s", common.ErrNameConflict, rl.Name, label.ExternalLabelID)
		}
		label.ExternalLabelID = rl.ExternalID
		label.IsFromRemote = true
		label.Color = color
		if err := repo.Update(ctx, label); err != nil {
			return unchanged, err
		}
		if err := r.mirror.Dispatch(ctx, tx, Event{Kind: LabelCreated, UserID: userID, Name: label.Name}); err != nil {
			return unchanged, err
		}
		return updated, nil
	}

	label = &models.Label{
		UserID:          userID,
		Name:            rl.Name,
		Color:           color,
		ExternalLabelID: rl.ExternalID,
		IsFromRemote:    true,
	}
	if err := repo.Create(ctx, label); err != nil {
		return unchanged, err
	}
	if err := r.mirror.Dispatch(ctx, tx, Event{Kind: LabelCreated, UserID: userID, Name: label.Name}); err != nil {
		return unchanged, err
	}
	return created, nil
}
