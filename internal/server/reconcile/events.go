package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/logging"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/repomanager"
)

// UntitledPlaceholder replaces an empty remote title.
const UntitledPlaceholder = "(No title)"

// EventReconciler imports remote calendar events as schedules.
type EventReconciler struct {
	repos repomanager.RepositoryManager
	log   logging.Logger
}

func NewEventReconciler(repos repomanager.RepositoryManager, log logging.Logger) *EventReconciler {
	return &EventReconciler{repos: repos, log: log.With("module", "event_reconciler")}
}

// lookup is a read-only snapshot of the user's labels and groups by name,
// built once per Reconcile call.
type lookup struct {
	labels map[string]*models.Label
	groups map[string]*models.Group
}

func (r *EventReconciler) buildLookup(ctx context.Context, tx dbx.DBTX, userID string) (*lookup, error) {
	labels, err := r.repos.Labels(tx).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	groups, err := r.repos.Groups(tx).ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	lk := &lookup{
		labels: make(map[string]*models.Label, len(labels)),
		groups: make(map[string]*models.Group, len(groups)),
	}
	for _, l := range labels {
		lk.labels[l.Name] = l
	}
	for _, g := range groups {
		lk.groups[g.Name] = g
	}
	return lk, nil
}

// Reconcile applies remote to the user's remote-sourced schedules. Item
// failures are logged and skipped.
func (r *EventReconciler) Reconcile(ctx context.Context, tx dbx.DBTX, userID string, remote []models.RemoteEvent) (Stats, error) {
	var stats Stats

	lk, err := r.buildLookup(ctx, tx, userID)
	if err != nil {
		return stats, err
	}

	for _, ev := range remote {
		var outcome itemOutcome
		err := runItem(ctx, tx, func() error {
			var err error
			outcome, err = r.reconcileOne(ctx, tx, userID, ev, lk)
			return err
		})
		if err != nil {
			stats.Failed++
			r.log.Warn(ctx, "remote event skipped", "user_id", userID, "external_id", ev.ExternalID, "error", err)
			continue
		}
		stats.add(outcome)
	}

	local, err := r.repos.Schedules(tx).ListRemoteExternalIDs(ctx, userID)
	if err != nil {
		return stats, fmt.Errorf("list remote schedules: %w", err)
	}
	localIDs := make(map[string]struct{}, len(local))
	for externalID := range local {
		localIDs[externalID] = struct{}{}
	}
	remoteIDs := idSet(remote, func(e models.RemoteEvent) string { return e.ExternalID })

	for externalID := range ComputeRemovals(remoteIDs, localIDs) {
		scheduleID := local[externalID]
		err := runItem(ctx, tx, func() error {
			return r.repos.Schedules(tx).Delete(ctx, scheduleID)
		})
		if err != nil {
			stats.Failed++
			r.log.Warn(ctx, "schedule deletion failed", "user_id", userID, "external_id", externalID, "error", err)
			continue
		}
		stats.Deleted++
	}

	r.log.Info(ctx, "events reconciled", "user_id", userID,
		"created", stats.Created, "updated", stats.Updated, "deleted", stats.Deleted, "failed", stats.Failed)
	return stats, nil
}

func (r *EventReconciler) reconcileOne(ctx context.Context, tx dbx.DBTX, userID string, ev models.RemoteEvent, lk *lookup) (itemOutcome, error) {
	if ev.ExternalID == "" {
		return unchanged, errors.New("remote event without id")
	}
	repo := r.repos.Schedules(tx)

	s, err := repo.FindByExternalID(ctx, userID, ev.ExternalID)
	isNew := errors.Is(err, common.ErrorNotFound)
	if err != nil && !isNew {
		return unchanged, err
	}
	if isNew {
		s = &models.Schedule{
			UserID:          userID,
			ExternalEventID: ev.ExternalID,
			IsFromRemote:    true,
			Color:           DefaultColor,
		}
	}

	fieldsChanged, labelIDs, err := applyRemoteFields(s, ev, lk)
	if err != nil {
		return unchanged, err
	}
	labelsChanged := !slices.Equal(labelIDs, s.LabelIDs)

	if isNew {
		s.LabelIDs = labelIDs
		if err := repo.Create(ctx, s); err != nil {
			return unchanged, err
		}
		return created, nil
	}

	if fieldsChanged {
		if err := repo.Update(ctx, s); err != nil {
			return unchanged, err
		}
	}
	if labelsChanged {
		if err := repo.ReplaceLabels(ctx, s.ID, labelIDs); err != nil {
			return unchanged, err
		}
	}
	if fieldsChanged || labelsChanged {
		return updated, nil
	}
	return unchanged, nil
}

// applyRemoteFields copies ev onto s and reports whether any scalar field or
// the group changed. The resolved label ids are returned sorted and left for
// the caller to compare, since labels are written separately.
func applyRemoteFields(s *models.Schedule, ev models.RemoteEvent, lk *lookup) (bool, []string, error) {
	start, err := parseRemoteTime(ev.Start)
	if err != nil {
		return false, nil, fmt.Errorf("start: %w", err)
	}
	end, err := parseRemoteTime(ev.End)
	if err != nil {
		return false, nil, fmt.Errorf("end: %w", err)
	}

	changed := false
	setString := func(dst *string, v string) {
		if *dst != v {
			*dst = v
			changed = true
		}
	}

	title := ev.Title
	if strings.TrimSpace(title) == "" {
		title = UntitledPlaceholder
	}
	setString(&s.Title, title)
	description := NormalizeText(ev.Body)
	if ev.BodyIsHTML {
		description = StripMarkup(ev.Body)
	}
	setString(&s.Description, description)

	if !s.StartAt.Equal(start) {
		s.StartAt = start
		changed = true
	}
	if !s.EndAt.Equal(end) {
		s.EndAt = end
		changed = true
	}
	if s.AllDay != ev.AllDay {
		s.AllDay = ev.AllDay
		changed = true
	}

	setString(&s.Location, ev.Location)
	organizer := ev.OrganizerName
	if organizer == "" {
		organizer = ev.OrganizerAddress
	}
	setString(&s.Organizer, organizer)
	setString(&s.Attendees, strings.Join(ev.Attendees, ", "))

	var (
		labelIDs   []string
		firstColor string
		groupID    string
	)
	seen := make(map[string]struct{}, len(ev.Labels))
	for _, name := range ev.Labels {
		if l, ok := lk.labels[name]; ok {
			if firstColor == "" {
				firstColor = l.Color
			}
			if _, dup := seen[l.ID]; !dup {
				seen[l.ID] = struct{}{}
				labelIDs = append(labelIDs, l.ID)
			}
		}
		if g, ok := lk.groups[name]; ok && groupID == "" {
			groupID = g.ID
		}
	}
	slices.Sort(labelIDs)

	setString(&s.GroupID, groupID)
	if firstColor != "" {
		setString(&s.Color, firstColor)
	}

	return changed, labelIDs, nil
}
