package reconcile

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/workhub/internal/logging"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

type fixture struct {
	repos  *repomanager.InMemoryRepositoryManager
	mirror *Mirror
	labels *LabelReconciler
	events *EventReconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := repomanager.NewInMemoryRepositoryManager()
	mirror := NewMirror(repos, logging.Nop{})
	return &fixture{
		repos:  repos,
		mirror: mirror,
		labels: NewLabelReconciler(repos, mirror, logging.Nop{}),
		events: NewEventReconciler(repos, logging.Nop{}),
	}
}

func (f *fixture) addLabel(t *testing.T, l models.Label) *models.Label {
	t.Helper()
	if l.UserID == "" {
		l.UserID = testUser
	}
	require.NoError(t, f.repos.Labels(nil).Create(context.Background(), &l))
	return &l
}

func (f *fixture) addGroup(t *testing.T, g models.Group) *models.Group {
	t.Helper()
	if g.UserID == "" {
		g.UserID = testUser
	}
	require.NoError(t, f.repos.Groups(nil).Create(context.Background(), &g))
	return &g
}

func (f *fixture) labelByName(t *testing.T, name string) *models.Label {
	t.Helper()
	l, err := findOptional(f.repos.Labels(nil).FindByName(context.Background(), testUser, name))
	require.NoError(t, err)
	return l
}

func (f *fixture) groupByName(t *testing.T, name string) *models.Group {
	t.Helper()
	g, err := findOptional(f.repos.Groups(nil).FindByName(context.Background(), testUser, name))
	require.NoError(t, err)
	return g
}

func (f *fixture) allLabels(t *testing.T) []*models.Label {
	t.Helper()
	out, err := f.repos.Labels(nil).ListByUser(context.Background(), testUser)
	require.NoError(t, err)
	return out
}

func (f *fixture) allGroups(t *testing.T) []*models.Group {
	t.Helper()
	out, err := f.repos.Groups(nil).ListActive(context.Background(), testUser)
	require.NoError(t, err)
	return out
}

func (f *fixture) schedule(t *testing.T, externalID string) *models.Schedule {
	t.Helper()
	s, err := findOptional(f.repos.Schedules(nil).FindByExternalID(context.Background(), testUser, externalID))
	require.NoError(t, err)
	return s
}

func (f *fixture) remoteScheduleIDs(t *testing.T) map[string]string {
	t.Helper()
	out, err := f.repos.Schedules(nil).ListRemoteExternalIDs(context.Background(), testUser)
	require.NoError(t, err)
	return out
}

func remoteEvent(id, title string, labels ...string) models.RemoteEvent {
	return models.RemoteEvent{
		ExternalID: id,
		Title:      title,
		Start:      models.RemoteDateTime{DateTime: "2026-03-02T09:00:00.0000000", TimeZone: "UTC"},
		End:        models.RemoteDateTime{DateTime: "2026-03-02T09:15:00.0000000", TimeZone: "UTC"},
		Labels:     labels,
	}
}
