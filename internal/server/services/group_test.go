package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupService_Create_MirrorsLabelOnce(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	g, err := f.groups.Create(ctx, testUser, "Beta", "launch work")
	require.NoError(t, err)
	assert.Equal(t, models.GroupActive, g.Status)

	assert.ElementsMatch(t, []string{"Beta"}, f.labelNames(t))
	assert.ElementsMatch(t, []string{"Beta"}, f.groupNames(t))
}

func TestGroupService_Create_Errors(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.groups.Create(ctx, testUser, "", "")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.groups.Create(ctx, testUser, "Beta", "")
	require.NoError(t, err)
	_, err = f.groups.Create(ctx, testUser, "Beta", "")
	assert.ErrorIs(t, err, common.ErrNameConflict)
}

func TestGroupService_Update(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	g, err := f.groups.Create(ctx, testUser, "Beta", "old")
	require.NoError(t, err)

	desc := "new"
	updated, err := f.groups.Update(ctx, testUser, g.ID, "Gamma", &desc)
	require.NoError(t, err)
	assert.Equal(t, "Gamma", updated.Name)
	assert.Equal(t, "new", updated.Description)
	assert.ElementsMatch(t, []string{"Gamma"}, f.labelNames(t))

	kept, err := f.groups.Update(ctx, testUser, g.ID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Gamma", kept.Name)
	assert.Equal(t, "new", kept.Description)
}

func TestGroupService_Update_RenameConflictLeavesLabel(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	g, err := f.groups.Create(ctx, testUser, "Beta", "")
	require.NoError(t, err)
	// A label named Gamma exists without a group of that name.
	f.addLabel(t, models.Label{Name: "Gamma"})

	_, err = f.groups.Update(ctx, testUser, g.ID, "Gamma", nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Beta", "Gamma"}, f.labelNames(t))
	assert.ElementsMatch(t, []string{"Gamma"}, f.groupNames(t))
}

func TestGroupService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	g, err := f.groups.Create(ctx, testUser, "Beta", "")
	require.NoError(t, err)

	require.NoError(t, f.groups.Delete(ctx, testUser, g.ID))
	assert.Empty(t, f.groupNames(t))
	assert.Empty(t, f.labelNames(t))

	assert.ErrorIs(t, f.groups.Delete(ctx, testUser, g.ID), common.ErrorNotFound, "already deleted")
}

func TestGroupService_Delete_KeepsRemoteLabel(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.addLabel(t, models.Label{Name: "Ops", ExternalLabelID: "cat-1", IsFromRemote: true})

	g, err := f.groups.Create(ctx, testUser, "Ops", "")
	require.NoError(t, err)
	require.NoError(t, f.groups.Delete(ctx, testUser, g.ID))

	assert.ElementsMatch(t, []string{"Ops"}, f.labelNames(t))
}

func TestGroupService_AttachFile(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	l, err := f.labels.Create(ctx, testUser, "Beta", "")
	require.NoError(t, err)
	g, err := f.repos.Groups(nil).FindByName(ctx, testUser, "Beta")
	require.NoError(t, err)

	ticket, err := f.groups.AttachFile(ctx, testUser, g.ID, "../../notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", ticket.File.FileName)
	assert.Equal(t, "pending", ticket.File.UploadStatus)
	assert.True(t, strings.HasPrefix(ticket.File.StorageKey, "users/"+testUser+"/groups/"+g.ID+"/"))
	assert.Equal(t, "https://s3.test/put/"+ticket.File.StorageKey, ticket.UploadURL)

	require.NoError(t, f.groups.CompleteUpload(ctx, testUser, g.ID, ticket.File.ID))
	files, err := f.groups.ListFiles(ctx, testUser, g.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "completed", files[0].UploadStatus)

	url, err := f.groups.DownloadURL(ctx, testUser, g.ID, ticket.File.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.test/get/"+ticket.File.StorageKey, url)

	// The group now has a file, so deleting the label no longer retires it.
	require.NoError(t, f.labels.Delete(ctx, testUser, l.ID))
	assert.ElementsMatch(t, []string{"Beta"}, f.groupNames(t))
}

func TestGroupService_AttachFile_Errors(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	g, err := f.groups.Create(ctx, testUser, "Beta", "")
	require.NoError(t, err)

	_, err = f.groups.AttachFile(ctx, testUser, g.ID, " ")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.groups.AttachFile(ctx, testUser, "missing", "a.txt")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	f.files.err = errors.New("endpoint down")
	_, err = f.groups.AttachFile(ctx, testUser, g.ID, "a.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "presign upload")

	files, err := f.groups.ListFiles(ctx, testUser, g.ID)
	require.NoError(t, err)
	assert.Empty(t, files, "no record without an upload URL")

	assert.ErrorIs(t, f.groups.CompleteUpload(ctx, testUser, g.ID, "nope"), common.ErrorNotFound)
}
