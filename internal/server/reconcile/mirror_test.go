package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirror_GroupCreatedMakesExactlyOneLabel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addLabel(t, models.Label{Name: "Existing", DisplayOrder: 4, Color: mirrorPalette[0]})

	// No group row exists: an unguarded LabelCreated follow-up would create one.
	require.NoError(t, f.mirror.Dispatch(ctx, nil, Event{Kind: GroupCreated, UserID: testUser, Name: "Beta"}))

	label := f.labelByName(t, "Beta")
	require.NotNil(t, label)
	assert.False(t, label.IsFromRemote)
	assert.Equal(t, 5, label.DisplayOrder)
	assert.Equal(t, mirrorPalette[1], label.Color)
	assert.Len(t, f.allLabels(t), 2)
	assert.Empty(t, f.allGroups(t))
}

func TestMirror_GroupCreatedWithExistingLabelIsNoop(t *testing.T) {
	f := newFixture(t)
	f.addLabel(t, models.Label{Name: "Beta"})
	writes := f.repos.Writes()

	require.NoError(t, f.mirror.Dispatch(context.Background(), nil, Event{Kind: GroupCreated, UserID: testUser, Name: "Beta"}))
	assert.Equal(t, writes, f.repos.Writes())
}

func TestPickColor(t *testing.T) {
	var all []*models.Label
	for _, c := range mirrorPalette {
		all = append(all, &models.Label{Color: c})
	}
	assert.Equal(t, mirrorPalette[0], pickColor(nil))
	assert.Equal(t, mirrorPalette[2], pickColor(all[:2]))
	assert.Equal(t, mirrorPalette[0], pickColor(all))
	assert.Equal(t, mirrorPalette[1], pickColor([]*models.Label{{Color: "#4a90e2"}}))
}

func TestMirror_GroupRenamed(t *testing.T) {
	f := newFixture(t)
	f.addLabel(t, models.Label{Name: "Old"})

	require.NoError(t, f.mirror.Dispatch(context.Background(), nil,
		Event{Kind: GroupRenamed, UserID: testUser, OldName: "Old", Name: "New"}))

	assert.Nil(t, f.labelByName(t, "Old"))
	assert.NotNil(t, f.labelByName(t, "New"))
}

func TestMirror_GroupRenameConflictIsNoop(t *testing.T) {
	f := newFixture(t)
	old := f.addLabel(t, models.Label{Name: "Old"})
	taken := f.addLabel(t, models.Label{Name: "New"})
	writes := f.repos.Writes()

	require.NoError(t, f.mirror.Dispatch(context.Background(), nil,
		Event{Kind: GroupRenamed, UserID: testUser, OldName: "Old", Name: "New"}))

	assert.Equal(t, writes, f.repos.Writes())
	assert.Equal(t, old.ID, f.labelByName(t, "Old").ID)
	assert.Equal(t, taken.ID, f.labelByName(t, "New").ID)
}

func TestMirror_GroupRenamedSameNameOrMissingLabel(t *testing.T) {
	f := newFixture(t)
	f.addLabel(t, models.Label{Name: "Same"})
	writes := f.repos.Writes()

	require.NoError(t, f.mirror.Dispatch(context.Background(), nil,
		Event{Kind: GroupRenamed, UserID: testUser, OldName: "Same", Name: "Same"}))
	require.NoError(t, f.mirror.Dispatch(context.Background(), nil,
		Event{Kind: GroupRenamed, UserID: testUser, OldName: "Ghost", Name: "Other"}))
	assert.Equal(t, writes, f.repos.Writes())
}

func TestMirror_GroupDeleted(t *testing.T) {
	f := newFixture(t)
	f.addLabel(t, models.Label{Name: "Local"})
	f.addLabel(t, models.Label{Name: "Remote", IsFromRemote: true, ExternalLabelID: "r1"})
	f.addLabel(t, models.Label{Name: "System", IsDefault: true})
	ctx := context.Background()

	for _, name := range []string{"Local", "Remote", "System", "Missing"} {
		require.NoError(t, f.mirror.Dispatch(ctx, nil, Event{Kind: GroupDeleted, UserID: testUser, Name: name}))
	}

	assert.Nil(t, f.labelByName(t, "Local"))
	assert.NotNil(t, f.labelByName(t, "Remote"))
	assert.NotNil(t, f.labelByName(t, "System"))
}

func TestMirror_LabelCreatedMakesMarkedGroup(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mirror.Dispatch(context.Background(), nil, Event{Kind: LabelCreated, UserID: testUser, Name: "Ops"}))

	g := f.groupByName(t, "Ops")
	require.NotNil(t, g)
	assert.True(t, IsMirrorCreated(g))
	assert.Equal(t, models.GroupActive, g.Status)
	// The follow-up GroupCreated is suppressed, so no label appears.
	assert.Empty(t, f.allLabels(t))
}

func TestMirror_LabelRenamed(t *testing.T) {
	f := newFixture(t)
	f.addGroup(t, models.Group{Name: "Ops"})
	f.addGroup(t, models.Group{Name: "Taken"})

	ctx := context.Background()
	require.NoError(t, f.mirror.Dispatch(ctx, nil, Event{Kind: LabelRenamed, UserID: testUser, OldName: "Ops", Name: "Taken"}))
	assert.NotNil(t, f.groupByName(t, "Ops"))

	require.NoError(t, f.mirror.Dispatch(ctx, nil, Event{Kind: LabelRenamed, UserID: testUser, OldName: "Ops", Name: "Platform"}))
	assert.Nil(t, f.groupByName(t, "Ops"))
	assert.NotNil(t, f.groupByName(t, "Platform"))
}

func TestMirror_LabelDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addGroup(t, models.Group{Name: "Mirrored", Description: MirrorMarker})
	withFile := f.addGroup(t, models.Group{Name: "Promoted", Description: MirrorMarker})
	f.addGroup(t, models.Group{Name: "Manual", Description: "created by hand"})
	require.NoError(t, f.repos.GroupFiles(nil).Create(ctx, &models.GroupFile{GroupID: withFile.ID, UserID: testUser, FileName: "a.pdf"}))

	for _, name := range []string{"Mirrored", "Promoted", "Manual", "Missing"} {
		require.NoError(t, f.mirror.Dispatch(ctx, nil, Event{Kind: LabelDeleted, UserID: testUser, Name: name}))
	}

	assert.Nil(t, f.groupByName(t, "Mirrored"))
	assert.NotNil(t, f.groupByName(t, "Promoted"))
	assert.NotNil(t, f.groupByName(t, "Manual"))
}

func TestMirror_GuardReleasedAfterError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	f.repos.FailWrite = func(op, key string) error {
		if op == "labels.Create" && key == "Broken" {
			return boom
		}
		return nil
	}
	ctx := WithGuard(context.Background())

	err := f.mirror.Dispatch(ctx, nil, Event{Kind: GroupCreated, UserID: testUser, Name: "Broken"})
	require.ErrorIs(t, err, boom)
	assert.False(t, guardActive(ctx))

	require.NoError(t, f.mirror.Dispatch(ctx, nil, Event{Kind: GroupCreated, UserID: testUser, Name: "Working"}))
	assert.NotNil(t, f.labelByName(t, "Working"))
}

func TestMirror_UnknownKind(t *testing.T) {
	f := newFixture(t)
	ctx := WithGuard(context.Background())

	err := f.mirror.Dispatch(ctx, nil, Event{Kind: EventKind(42), UserID: testUser, Name: "x"})
	assert.ErrorContains(t, err, "unknown mirror event kind")
	assert.False(t, guardActive(ctx))
}

func TestMirror_ConcurrentUsersDoNotSuppressEachOther(t *testing.T) {
	f := newFixture(t)
	users := []string{"u-a", "u-b", "u-c", "u-d"}

	var wg sync.WaitGroup
	errs := make(chan error, len(users)*10)
	for _, user := range users {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			ctx := WithGuard(context.Background())
			for i := 0; i < 10; i++ {
				errs <- f.mirror.Dispatch(ctx, nil, Event{Kind: GroupCreated, UserID: user, Name: fmt.Sprintf("g%d", i)})
			}
		}(user)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, user := range users {
		labels, err := f.repos.Labels(nil).ListByUser(context.Background(), user)
		require.NoError(t, err)
		assert.Len(t, labels, 10, user)
	}
}
