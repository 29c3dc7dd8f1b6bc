package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventFixture struct {
	*fixture
	beta, ops *models.Label
	betaGroup *models.Group
	opsGroup  *models.Group
}

func newEventFixture(t *testing.T) *eventFixture {
	t.Helper()
	f := newFixture(t)
	return &eventFixture{
		fixture:   f,
		beta:      f.addLabel(t, models.Label{Name: "Beta", Color: "#47D041"}),
		ops:       f.addLabel(t, models.Label{Name: "Ops", Color: "#E74856"}),
		betaGroup: f.addGroup(t, models.Group{Name: "Beta"}),
		opsGroup:  f.addGroup(t, models.Group{Name: "Ops"}),
	}
}

func TestEventReconciler_CreatesSchedule(t *testing.T) {
	f := newEventFixture(t)
	ev := models.RemoteEvent{
		ExternalID:       "E1",
		Title:            "Standup",
		Body:             "<p>Daily <b>sync</b></p>",
		BodyIsHTML:       true,
		Start:            models.RemoteDateTime{DateTime: "2026-03-02T09:30:00.0000000", TimeZone: "Pacific Standard Time"},
		End:              models.RemoteDateTime{DateTime: "2026-03-02T09:45:00.0000000", TimeZone: "Pacific Standard Time"},
		Location:         "Room 1",
		OrganizerAddress: "lead@example.com",
		Attendees:        []string{"Ann", "Bob"},
		Labels:           []string{"Beta"},
	}

	stats, err := f.events.Reconcile(context.Background(), nil, testUser, []models.RemoteEvent{ev})
	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 1}, stats)

	got := f.schedule(t, "E1")
	require.NotNil(t, got)
	want := &models.Schedule{
		UserID:          testUser,
		Title:           "Standup",
		Description:     "Daily sync",
		StartAt:         time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC),
		EndAt:           time.Date(2026, 3, 2, 17, 45, 0, 0, time.UTC),
		Color:           "#47D041",
		Location:        "Room 1",
		Organizer:       "lead@example.com",
		Attendees:       "Ann, Bob",
		ExternalEventID: "E1",
		IsFromRemote:    true,
		LabelIDs:        []string{f.beta.ID},
		GroupID:         f.betaGroup.ID,
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(models.Schedule{}, "ID", "CreatedAt", "UpdatedAt")); diff != "" {
		t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
	}
}

func TestEventReconciler_PlaceholderTitleAndDefaultColor(t *testing.T) {
	f := newEventFixture(t)

	_, err := f.events.Reconcile(context.Background(), nil, testUser, []models.RemoteEvent{remoteEvent("E1", "  ")})
	require.NoError(t, err)

	got := f.schedule(t, "E1")
	assert.Equal(t, UntitledPlaceholder, got.Title)
	assert.Equal(t, DefaultColor, got.Color)
	assert.Empty(t, got.GroupID)
	assert.Empty(t, got.LabelIDs)
}

func TestEventReconciler_SecondRunIsNoop(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()
	events := []models.RemoteEvent{
		remoteEvent("E1", "Standup", "Beta"),
		remoteEvent("E2", "Retro", "Ops", "Beta"),
		remoteEvent("E3", ""),
	}
	events[1].Body = "<div>Notes &amp; actions</div>"
	events[1].BodyIsHTML = true
	events[1].Start.TimeZone = "Europe/Riga"
	events[1].End.TimeZone = "Europe/Riga"

	_, err := f.events.Reconcile(ctx, nil, testUser, events)
	require.NoError(t, err)
	writes := f.repos.Writes()

	stats, err := f.events.Reconcile(ctx, nil, testUser, events)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Equal(t, writes, f.repos.Writes())
}

func TestEventReconciler_DetectsFieldChanges(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()
	ev := remoteEvent("E1", "Standup", "Beta")

	_, err := f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{ev})
	require.NoError(t, err)

	ev.Location = "Room 2"
	stats, err := f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{ev})
	require.NoError(t, err)
	assert.Equal(t, Stats{Updated: 1}, stats)
	assert.Equal(t, "Room 2", f.schedule(t, "E1").Location)

	ev.Labels = []string{"Beta", "Ops"}
	stats, err = f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{ev})
	require.NoError(t, err)
	assert.Equal(t, Stats{Updated: 1}, stats)
	assert.ElementsMatch(t, []string{f.beta.ID, f.ops.ID}, f.schedule(t, "E1").LabelIDs)
}

func TestEventReconciler_SameInstantInOtherZoneIsUnchanged(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()
	ev := remoteEvent("E1", "Standup")

	_, err := f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{ev})
	require.NoError(t, err)

	ev.Start = models.RemoteDateTime{DateTime: "2026-03-02T11:00:00", TimeZone: "Europe/Riga"}
	ev.End = models.RemoteDateTime{DateTime: "2026-03-02T11:15:00", TimeZone: "FLE Standard Time"}
	stats, err := f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{ev})
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestEventReconciler_FirstMatchingLabelPicksGroup(t *testing.T) {
	f := newEventFixture(t)

	_, err := f.events.Reconcile(context.Background(), nil, testUser, []models.RemoteEvent{
		remoteEvent("E1", "Incident review", "Ops", "Beta"),
	})
	require.NoError(t, err)

	got := f.schedule(t, "E1")
	assert.Equal(t, f.opsGroup.ID, got.GroupID)
	assert.Equal(t, f.ops.Color, got.Color)
}

func TestEventReconciler_UnknownLabelsIgnored(t *testing.T) {
	f := newEventFixture(t)

	stats, err := f.events.Reconcile(context.Background(), nil, testUser, []models.RemoteEvent{
		remoteEvent("E1", "Planning", "Nope", "Beta", "Beta"),
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 1}, stats)

	got := f.schedule(t, "E1")
	assert.Equal(t, []string{f.beta.ID}, got.LabelIDs)
	assert.Equal(t, f.beta.Color, got.Color)
	assert.Equal(t, f.betaGroup.ID, got.GroupID)
}

func TestEventReconciler_GroupClearedWhenLabelsGone(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	_, err := f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{remoteEvent("E1", "Sync", "Beta")})
	require.NoError(t, err)

	stats, err := f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{remoteEvent("E1", "Sync")})
	require.NoError(t, err)
	assert.Equal(t, Stats{Updated: 1}, stats)

	got := f.schedule(t, "E1")
	assert.Empty(t, got.GroupID)
	assert.Empty(t, got.LabelIDs)
	assert.Equal(t, f.beta.Color, got.Color, "color is only overwritten by a resolved label")
}

func TestEventReconciler_LabelWithoutGroupLeavesGroupEmpty(t *testing.T) {
	f := newEventFixture(t)
	solo := f.addLabel(t, models.Label{Name: "Solo", Color: "#123456"})

	_, err := f.events.Reconcile(context.Background(), nil, testUser, []models.RemoteEvent{remoteEvent("E1", "x", "Solo")})
	require.NoError(t, err)

	got := f.schedule(t, "E1")
	assert.Empty(t, got.GroupID)
	assert.Equal(t, []string{solo.ID}, got.LabelIDs)
	assert.Equal(t, "#123456", got.Color)
}

func TestEventReconciler_BadItemsAreSkipped(t *testing.T) {
	f := newEventFixture(t)
	badZone := remoteEvent("E1", "Mars meeting")
	badZone.Start.TimeZone = "Mars/Olympus_Mons"
	badTime := remoteEvent("E2", "Broken")
	badTime.End.DateTime = "tomorrow-ish"
	noID := remoteEvent("", "Orphan")

	stats, err := f.events.Reconcile(context.Background(), nil, testUser, []models.RemoteEvent{
		badZone, badTime, noID, remoteEvent("E3", "Fine"),
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 1, Failed: 3}, stats)
	assert.NotNil(t, f.schedule(t, "E3"))
	assert.Nil(t, f.schedule(t, "E1"))
}

func TestEventReconciler_FailedItemIsNotDeleted(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	_, err := f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{remoteEvent("E1", "Standup")})
	require.NoError(t, err)

	broken := remoteEvent("E1", "Standup moved")
	broken.Start.TimeZone = "Nowhere/Special"
	stats, err := f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{broken})
	require.NoError(t, err)
	assert.Equal(t, Stats{Failed: 1}, stats)
	assert.Equal(t, "Standup", f.schedule(t, "E1").Title)
}

func TestEventReconciler_DeletesExactlyTheMissingEvent(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()
	events := []models.RemoteEvent{
		remoteEvent("E1", "One", "Beta"),
		remoteEvent("E2", "Two"),
		remoteEvent("E3", "Three", "Ops"),
	}

	_, err := f.events.Reconcile(ctx, nil, testUser, events)
	require.NoError(t, err)
	before := f.remoteScheduleIDs(t)
	writes := f.repos.Writes()

	stats, err := f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{events[0], events[2]})
	require.NoError(t, err)
	assert.Equal(t, Stats{Deleted: 1}, stats)
	assert.Equal(t, writes+1, f.repos.Writes())

	after := f.remoteScheduleIDs(t)
	assert.Equal(t, map[string]string{"E1": before["E1"], "E3": before["E3"]}, after)
}

func TestEventReconciler_EmptyRemoteDeletesRemoteSchedulesOnly(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()
	local := &models.Schedule{UserID: testUser, Title: "Dentist", StartAt: time.Now(), EndAt: time.Now()}
	require.NoError(t, f.repos.Schedules(nil).Create(ctx, local))

	_, err := f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{remoteEvent("E1", "a"), remoteEvent("E2", "b")})
	require.NoError(t, err)

	stats, err := f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{})
	require.NoError(t, err)
	assert.Equal(t, Stats{Deleted: 2}, stats)
	assert.Empty(t, f.remoteScheduleIDs(t))

	left, err := f.repos.Schedules(nil).ListByUser(ctx, testUser, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, local.ID, left[0].ID)
}

func TestEventReconciler_DeletionFailureContinues(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	_, err := f.events.Reconcile(ctx, nil, testUser, []models.RemoteEvent{remoteEvent("E1", "a"), remoteEvent("E2", "b")})
	require.NoError(t, err)

	f.repos.FailWrite = func(op, key string) error {
		if op == "schedules.Delete" && key == "E1" {
			return errors.New("locked")
		}
		return nil
	}
	stats, err := f.events.Reconcile(ctx, nil, testUser, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Deleted: 1, Failed: 1}, stats)
	assert.NotNil(t, f.schedule(t, "E1"))
	assert.Nil(t, f.schedule(t, "E2"))
}

func TestParseRemoteTime(t *testing.T) {
	tests := []struct {
		name string
		in   models.RemoteDateTime
		want time.Time
	}{
		{"utc fraction", models.RemoteDateTime{DateTime: "2026-01-10T08:00:00.0000000", TimeZone: "UTC"}, time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)},
		{"empty zone", models.RemoteDateTime{DateTime: "2026-01-10T08:00:00"}, time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)},
		{"iana", models.RemoteDateTime{DateTime: "2026-07-01T12:00:00", TimeZone: "Europe/Riga"}, time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)},
		{"windows", models.RemoteDateTime{DateTime: "2026-01-10T08:00:00", TimeZone: "Tokyo Standard Time"}, time.Date(2026, 1, 9, 23, 0, 0, 0, time.UTC)},
		{"date only", models.RemoteDateTime{DateTime: "2026-01-10", TimeZone: "UTC"}, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"rfc3339", models.RemoteDateTime{DateTime: "2026-01-10T08:00:00+02:00"}, time.Date(2026, 1, 10, 6, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRemoteTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := parseRemoteTime(models.RemoteDateTime{DateTime: "2026-01-10T08:00:00", TimeZone: "Not/AZone"})
	assert.ErrorContains(t, err, "unknown time zone")
}

func TestEventReconciler_PlainTextBodyKeepsAngleBrackets(t *testing.T) {
	f := newEventFixture(t)
	ev := remoteEvent("E1", "Review")
	ev.Body = "if x<y and z>w then ok &amp; done"

	_, err := f.events.Reconcile(context.Background(), nil, testUser, []models.RemoteEvent{ev})
	require.NoError(t, err)

	got := f.schedule(t, "E1")
	require.NotNil(t, got)
	assert.Equal(t, "if x<y and z>w then ok &amp; done", got.Description)
}
