package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelReconciler_CreatesRemoteLabelAndMirrorGroup(t *testing.T) {
	f := newFixture(t)

	stats, err := f.labels.Reconcile(context.Background(), nil, testUser, []models.RemoteLabel{
		{ExternalID: "r-ops", Name: "Ops", ColorToken: "preset7"},
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 1}, stats)

	l := f.labelByName(t, "Ops")
	require.NotNil(t, l)
	assert.True(t, l.IsFromRemote)
	assert.Equal(t, "r-ops", l.ExternalLabelID)
	assert.Equal(t, "#4A90E2", l.Color)
	assert.Equal(t, 0, l.DisplayOrder)

	g := f.groupByName(t, "Ops")
	require.NotNil(t, g)
	assert.True(t, IsMirrorCreated(g))
}

func TestLabelReconciler_AdoptsLocalLabelByName(t *testing.T) {
	f := newFixture(t)
	local := f.addLabel(t, models.Label{Name: "Acme", Color: "#111111"})

	stats, err := f.labels.Reconcile(context.Background(), nil, testUser, []models.RemoteLabel{
		{ExternalID: "r-acme", Name: "Acme", ColorToken: "preset4"},
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Updated: 1}, stats)

	all := f.allLabels(t)
	require.Len(t, all, 1)
	assert.Equal(t, local.ID, all[0].ID)
	assert.True(t, all[0].IsFromRemote)
	assert.Equal(t, "r-acme", all[0].ExternalLabelID)
	assert.Equal(t, "#47D041", all[0].Color)
	assert.NotNil(t, f.groupByName(t, "Acme"))
}

func TestLabelReconciler_SecondRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	remote := []models.RemoteLabel{
		{ExternalID: "r1", Name: "One", ColorToken: "preset0"},
		{ExternalID: "r2", Name: "Two", ColorToken: "unknown"},
	}
	ctx := context.Background()

	_, err := f.labels.Reconcile(ctx, nil, testUser, remote)
	require.NoError(t, err)
	writes := f.repos.Writes()

	stats, err := f.labels.Reconcile(ctx, nil, testUser, remote)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Equal(t, writes, f.repos.Writes())
}

func TestLabelReconciler_RemoteRenameFollowsToGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.labels.Reconcile(ctx, nil, testUser, []models.RemoteLabel{{ExternalID: "r1", Name: "Old", ColorToken: "preset1"}})
	require.NoError(t, err)

	stats, err := f.labels.Reconcile(ctx, nil, testUser, []models.RemoteLabel{{ExternalID: "r1", Name: "New", ColorToken: "preset2"}})
	require.NoError(t, err)
	assert.Equal(t, Stats{Updated: 1}, stats)

	l := f.labelByName(t, "New")
	require.NotNil(t, l)
	assert.Equal(t, "#AB7B50", l.Color)
	assert.Nil(t, f.groupByName(t, "Old"))
	assert.NotNil(t, f.groupByName(t, "New"))
}

func TestLabelReconciler_DeletesLabelsGoneUpstream(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addLabel(t, models.Label{Name: "Mine"})
	f.addLabel(t, models.Label{Name: "Default", IsDefault: true, IsFromRemote: true, ExternalLabelID: "r-def"})

	_, err := f.labels.Reconcile(ctx, nil, testUser, []models.RemoteLabel{
		{ExternalID: "r1", Name: "Keep"},
		{ExternalID: "r2", Name: "Drop"},
	})
	require.NoError(t, err)

	stats, err := f.labels.Reconcile(ctx, nil, testUser, []models.RemoteLabel{{ExternalID: "r1", Name: "Keep"}})
	require.NoError(t, err)
	assert.Equal(t, Stats{Deleted: 1}, stats)

	assert.Nil(t, f.labelByName(t, "Drop"))
	assert.Nil(t, f.groupByName(t, "Drop"), "unused mirror group is retired with its label")
	assert.NotNil(t, f.labelByName(t, "Keep"))
	assert.NotNil(t, f.labelByName(t, "Mine"))
	assert.NotNil(t, f.labelByName(t, "Default"))
}

func TestLabelReconciler_EmptyRemoteRemovesAllRemoteLabels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addLabel(t, models.Label{Name: "Mine"})

	_, err := f.labels.Reconcile(ctx, nil, testUser, []models.RemoteLabel{{ExternalID: "r1", Name: "A"}, {ExternalID: "r2", Name: "B"}})
	require.NoError(t, err)

	stats, err := f.labels.Reconcile(ctx, nil, testUser, []models.RemoteLabel{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Deleted)
	all := f.allLabels(t)
	require.Len(t, all, 1)
	assert.Equal(t, "Mine", all[0].Name)
}

func TestLabelReconciler_ItemFailureDoesNotAbortBatch(t *testing.T) {
	f := newFixture(t)
	f.repos.FailWrite = func(op, key string) error {
		if op == "labels.Create" && key == "Bad" {
			return errors.New("insert failed")
		}
		return nil
	}

	stats, err := f.labels.Reconcile(context.Background(), nil, testUser, []models.RemoteLabel{
		{ExternalID: "r1", Name: "Bad"},
		{ExternalID: "r2", Name: "Good"},
		{ExternalID: "", Name: "NoID"},
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 1, Failed: 2}, stats)
	assert.NotNil(t, f.labelByName(t, "Good"))
	assert.Nil(t, f.labelByName(t, "Bad"))
}

func TestLabelReconciler_DeletionFailureContinues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.labels.Reconcile(ctx, nil, testUser, []models.RemoteLabel{
		{ExternalID: "r1", Name: "Stuck"},
		{ExternalID: "r2", Name: "Gone"},
	})
	require.NoError(t, err)

	f.repos.FailWrite = func(op, key string) error {
		if op == "labels.Delete" && key == "Stuck" {
			return errors.New("locked")
		}
		return nil
	}
	stats, err := f.labels.Reconcile(ctx, nil, testUser, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Deleted: 1, Failed: 1}, stats)
	assert.NotNil(t, f.labelByName(t, "Stuck"))

	f.repos.FailWrite = nil
	stats, err = f.labels.Reconcile(ctx, nil, testUser, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Deleted: 1}, stats)
}

func TestLabelReconciler_DuplicateRemoteNamesDoNotChurn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	remote := []models.RemoteLabel{
		{ExternalID: "r1", Name: "Dup"},
		{ExternalID: "r2", Name: "Dup"},
	}

	stats, err := f.labels.Reconcile(ctx, nil, testUser, remote)
	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 1, Failed: 1}, stats)
	writes := f.repos.Writes()

	stats, err = f.labels.Reconcile(ctx, nil, testUser, remote)
	require.NoError(t, err)
	assert.Equal(t, Stats{Failed: 1}, stats)
	assert.Equal(t, writes, f.repos.Writes())
	assert.Equal(t, "r1", f.labelByName(t, "Dup").ExternalLabelID)
}

func TestLabelReconciler_RenameIntoTakenNameFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addLabel(t, models.Label{Name: "Taken"})

	_, err := f.labels.Reconcile(ctx, nil, testUser, []models.RemoteLabel{{ExternalID: "r1", Name: "Free"}})
	require.NoError(t, err)

	stats, err := f.labels.Reconcile(ctx, nil, testUser, []models.RemoteLabel{{ExternalID: "r1", Name: "Taken"}})
	require.NoError(t, err)
	assert.Equal(t, Stats{Failed: 1}, stats)
	assert.Equal(t, "r1", f.labelByName(t, "Free").ExternalLabelID)
}

func TestLabelReconciler_ConflictErrorIsNameConflict(t *testing.T) {
	f := newFixture(t)
	f.addLabel(t, models.Label{Name: "Dup", IsFromRemote: true, ExternalLabelID: "r1"})

	_, err := f.labels.reconcileOne(context.Background(), nil, testUser,
		models.RemoteLabel{ExternalID: "r2", Name: "Dup"}, set("r1", "r2"))
	assert.ErrorIs(t, err, common.ErrNameConflict)
}
