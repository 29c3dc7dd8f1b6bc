package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/logging"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/repomanager"
)

// MirrorMarker is written to the description of groups created by the
// mirror. Only such groups are retired when their label goes away.
const MirrorMarker = "[mirrored from label]"

// mirrorPalette is used for labels created from groups. Colors already taken
// by the user's labels are skipped; when all are taken the first one is used.
var mirrorPalette = []string{
	"#4A90E2", "#47D041", "#FF8C00", "#8764B8", "#E74856",
	"#30C6CC", "#C19C00", "#F495BF", "#73AA24", "#A0AEB2",
}

type EventKind int

const (
	GroupCreated EventKind = iota + 1
	GroupRenamed
	GroupDeleted
	LabelCreated
	LabelRenamed
	LabelDeleted
)

func (k EventKind) String() string {
	switch k {
	case GroupCreated:
		return "group_created"
	case GroupRenamed:
		return "group_renamed"
	case GroupDeleted:
		return "group_deleted"
	case LabelCreated:
		return "label_created"
	case LabelRenamed:
		return "label_renamed"
	case LabelDeleted:
		return "label_deleted"
	default:
		return fmt.Sprintf("event_kind(%d)", int(k))
	}
}

// Event describes a create, rename or delete of a group or label. OldName is
// set for renames only.
type Event struct {
	Kind    EventKind
	UserID  string
	Name    string
	OldName string
}

// Mirror keeps groups and labels in step by name.
type Mirror struct {
	repos repomanager.RepositoryManager
	log   logging.Logger
}

func NewMirror(repos repomanager.RepositoryManager, log logging.Logger) *Mirror {
	return &Mirror{repos: repos, log: log.With("module", "mirror")}
}

// Dispatch applies ev to the opposite entity kind inside tx. Every change the
// mirror makes is itself an event; those follow-ups are dispatched too and
// stop at the guard, so one trigger moves at most one hop.
func (m *Mirror) Dispatch(ctx context.Context, tx dbx.DBTX, ev Event) error {
	ctx, release, ok := acquireGuard(ctx)
	if !ok {
		m.log.Debug(ctx, "mirror trigger suppressed", "kind", ev.Kind.String(), "name", ev.Name, "user_id", ev.UserID)
		return nil
	}
	defer release()

	var (
		followUps []Event
		err       error
	)
	switch ev.Kind {
	case GroupCreated, GroupRenamed, GroupDeleted:
		followUps, err = m.reconcileLabelFromGroupEvent(ctx, tx, ev)
	case LabelCreated, LabelRenamed, LabelDeleted:
		followUps, err = m.reconcileGroupFromLabelEvent(ctx, tx, ev)
	default:
		return fmt.Errorf("unknown mirror event kind %d", int(ev.Kind))
	}
	if err != nil {
		return fmt.Errorf("mirror %s %q: %w", ev.Kind, ev.Name, err)
	}

	for _, next := range followUps {
		if err := m.Dispatch(ctx, tx, next); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mirror) reconcileLabelFromGroupEvent(ctx context.Context, tx dbx.DBTX, ev Event) ([]Event, error) {
	repo := m.repos.Labels(tx)

	switch ev.Kind {
	case GroupCreated:
		if _, err := repo.FindByName(ctx, ev.UserID, ev.Name); err == nil {
			return nil, nil
		} else if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}

		existing, err := repo.ListByUser(ctx, ev.UserID)
		if err != nil {
			return nil, err
		}
		order, err := repo.MaxDisplayOrder(ctx, ev.UserID)
		if err != nil {
			return nil, err
		}
		label := &models.Label{
			UserID:       ev.UserID,
			Name:         ev.Name,
			Color:        pickColor(existing),
			DisplayOrder: order + 1,
		}
		if err := repo.Create(ctx, label); err != nil {
			return nil, err
		}
		m.log.Info(ctx, "label created for group", "user_id", ev.UserID, "name", ev.Name)
		return []Event{{Kind: LabelCreated, UserID: ev.UserID, Name: ev.Name}}, nil

	case GroupRenamed:
		if ev.OldName == ev.Name {
			return nil, nil
		}
		label, err := findOptional(repo.FindByName(ctx, ev.UserID, ev.OldName))
		if err != nil || label == nil {
			return nil, err
		}
		taken, err := findOptional(repo.FindByName(ctx, ev.UserID, ev.Name))
		if err != nil {
			return nil, err
		}
		if taken != nil {
			m.log.Warn(ctx, "label rename skipped: name already in use",
				"user_id", ev.UserID, "from", ev.OldName, "to", ev.Name)
			return nil, nil
		}
		label.Name = ev.Name
		if err := repo.Update(ctx, label); err != nil {
			return nil, err
		}
		return []Event{{Kind: LabelRenamed, UserID: ev.UserID, Name: ev.Name, OldName: ev.OldName}}, nil

	case GroupDeleted:
		label, err := findOptional(repo.FindByName(ctx, ev.UserID, ev.Name))
		if err != nil || label == nil {
			return nil, err
		}
		if label.IsFromRemote || label.IsDefault {
			return nil, nil
		}
		if err := repo.Delete(ctx, label.ID); err != nil {
			return nil, err
		}
		return []Event{{Kind: LabelDeleted, UserID: ev.UserID, Name: ev.Name}}, nil
	}
	return nil, nil
}

func (m *Mirror) reconcileGroupFromLabelEvent(ctx context.Context, tx dbx.DBTX, ev Event) ([]Event, error) {
	repo := m.repos.Groups(tx)

	switch ev.Kind {
	case LabelCreated:
		existing, err := findOptional(repo.FindByName(ctx, ev.UserID, ev.Name))
		if err != nil || existing != nil {
			return nil, err
		}
		group := &models.Group{
			UserID:      ev.UserID,
			Name:        ev.Name,
			Description: MirrorMarker,
			Status:      models.GroupActive,
		}
		if err := repo.Create(ctx, group); err != nil {
			return nil, err
		}
		m.log.Info(ctx, "group created for label", "user_id", ev.UserID, "name", ev.Name)
		return []Event{{Kind: GroupCreated, UserID: ev.UserID, Name: ev.Name}}, nil

	case LabelRenamed:
		if ev.OldName == ev.Name {
			return nil, nil
		}
		group, err := findOptional(repo.FindByName(ctx, ev.UserID, ev.OldName))
		if err != nil || group == nil {
			return nil, err
		}
		taken, err := findOptional(repo.FindByName(ctx, ev.UserID, ev.Name))
		if err != nil {
			return nil, err
		}
		if taken != nil {
			m.log.Warn(ctx, "group rename skipped: name already in use",
				"user_id", ev.UserID, "from", ev.OldName, "to", ev.Name)
			return nil, nil
		}
		group.Name = ev.Name
		if err := repo.Update(ctx, group); err != nil {
			return nil, err
		}
		return []Event{{Kind: GroupRenamed, UserID: ev.UserID, Name: ev.Name, OldName: ev.OldName}}, nil

	case LabelDeleted:
		group, err := findOptional(repo.FindByName(ctx, ev.UserID, ev.Name))
		if err != nil || group == nil {
			return nil, err
		}
		if !IsMirrorCreated(group) {
			return nil, nil
		}
		files, err := m.repos.GroupFiles(tx).CountByGroup(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		if files > 0 {
			m.log.Debug(ctx, "group kept: has files", "user_id", ev.UserID, "name", ev.Name, "files", files)
			return nil, nil
		}
		if err := repo.SoftDelete(ctx, group.ID); err != nil {
			return nil, err
		}
		return []Event{{Kind: GroupDeleted, UserID: ev.UserID, Name: ev.Name}}, nil
	}
	return nil, nil
}

// IsMirrorCreated reports whether g carries the mirror provenance marker.
func IsMirrorCreated(g *models.Group) bool {
	return strings.Contains(g.Description, MirrorMarker)
}

func pickColor(existing []*models.Label) string {
	used := make(map[string]struct{}, len(existing))
	for _, l := range existing {
		used[strings.ToUpper(l.Color)] = struct{}{}
	}
	for _, c := range mirrorPalette {
		if _, ok := used[c]; !ok {
			return c
		}
	}
	return mirrorPalette[0]
}

// findOptional turns common.ErrorNotFound into a nil result.
func findOptional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
