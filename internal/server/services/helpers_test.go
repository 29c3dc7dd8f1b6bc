package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/logging"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/reconcile"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

// inlineTx runs service transactions directly against the in-memory store.
func inlineTx(t *testing.T) {
	t.Helper()
	orig := withTx
	withTx = func(ctx context.Context, _ *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		return fn(ctx, nil)
	}
	t.Cleanup(func() { withTx = orig })
}

type fakeFileStore struct {
	putKeys []string
	getKeys []string
	err     error
}

func (f *fakeFileStore) PresignPut(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.putKeys = append(f.putKeys, key)
	return "https://s3.test/put/" + key, nil
}

func (f *fakeFileStore) PresignGet(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.getKeys = append(f.getKeys, key)
	return "https://s3.test/get/" + key, nil
}

type serviceFixture struct {
	repos  *repomanager.InMemoryRepositoryManager
	files  *fakeFileStore
	labels *LabelService
	groups *GroupService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	inlineTx(t)

	repos := repomanager.NewInMemoryRepositoryManager()
	mirror := reconcile.NewMirror(repos, logging.Nop{})
	files := &fakeFileStore{}
	return &serviceFixture{
		repos:  repos,
		files:  files,
		labels: NewLabelService(nil, repos, mirror, logging.Nop{}),
		groups: NewGroupService(nil, repos, mirror, files, logging.Nop{}),
	}
}

func (f *serviceFixture) labelNames(t *testing.T) []string {
	t.Helper()
	ls, err := f.repos.Labels(nil).ListByUser(context.Background(), testUser)
	require.NoError(t, err)
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Name)
	}
	return out
}

func (f *serviceFixture) groupNames(t *testing.T) []string {
	t.Helper()
	gs, err := f.repos.Groups(nil).ListActive(context.Background(), testUser)
	require.NoError(t, err)
	out := make([]string, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.Name)
	}
	return out
}

func (f *serviceFixture) addLabel(t *testing.T, l models.Label) *models.Label {
	t.Helper()
	l.UserID = testUser
	require.NoError(t, f.repos.Labels(nil).Create(context.Background(), &l))
	return &l
}
