package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/logging"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/repomanager"
)

// Window bounds the remote fetch.
type Window struct {
	Start time.Time
	End   time.Time
}

// RemoteClient reads the provider's state for one user. A successful fetch
// with nothing in it returns an empty slice and a nil error; any failure,
// including a timeout, returns an error.
type RemoteClient interface {
	ListLabels(ctx context.Context, w Window) ([]models.RemoteLabel, error)
	ListEvents(ctx context.Context, w Window) ([]models.RemoteEvent, error)
}

// Connector builds a RemoteClient from the user's stored credentials.
type Connector interface {
	Connect(ctx context.Context, user *models.User) (RemoteClient, error)
}

// Result is what a sync reports to its caller. The counts are schedule
// records; label activity is kept in Labels.
type Result struct {
	Created int
	Updated int
	Deleted int
	Labels  Stats
}

type SyncerConfig struct {
	FetchTimeout time.Duration
	Lookback     time.Duration
	Lookahead    time.Duration
}

// Syncer runs one user's sync: fetch, labels phase, events phase.
type Syncer struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	connector Connector
	labels    *LabelReconciler
	events    *EventReconciler
	cfg       SyncerConfig
	log       logging.Logger
	now       func() time.Time
}

func NewSyncer(db *sql.DB, repos repomanager.RepositoryManager, connector Connector, cfg SyncerConfig, log logging.Logger) *Syncer {
	mirror := NewMirror(repos, log)
	return &Syncer{
		db:        db,
		repos:     repos,
		connector: connector,
		labels:    NewLabelReconciler(repos, mirror, log),
		events:    NewEventReconciler(repos, log),
		cfg:       cfg,
		log:       log.With("module", "syncer"),
		now:       time.Now,
	}
}

// withPhaseTx is a seam so tests can run phases without a database.
var withPhaseTx = func(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, db, nil, fn)
}

// SyncUser pulls the user's remote labels and events and reconciles them
// into local storage. Both remote sets are fetched before anything local is
// written, so a failed fetch leaves the database untouched.
func (s *Syncer) SyncUser(ctx context.Context, userID string) (Result, error) {
	var res Result
	ctx = WithGuard(ctx)

	user, err := s.repos.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return res, err
	}
	if !user.RemoteConnected() {
		return res, common.ErrNotConnected
	}

	remoteLabels, remoteEvents, err := s.fetch(ctx, user)
	if err != nil {
		s.log.Error(ctx, "remote fetch failed", "user_id", userID, "error", err)
		return res, fmt.Errorf("%w: %w", common.ErrSyncFailed, err)
	}

	err = withPhaseTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		res.Labels, err = s.labels.Reconcile(ctx, tx, userID, remoteLabels)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("labels phase: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	var events Stats
	err = withPhaseTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		events, err = s.events.Reconcile(ctx, tx, userID, remoteEvents)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("events phase: %w", err)
	}

	res.Created, res.Updated, res.Deleted = events.Created, events.Updated, events.Deleted
	s.log.Info(ctx, "sync finished", "user_id", userID,
		"created", res.Created, "updated", res.Updated, "deleted", res.Deleted,
		"labels_created", res.Labels.Created, "labels_deleted", res.Labels.Deleted)
	return res, nil
}

func (s *Syncer) fetch(ctx context.Context, user *models.User) ([]models.RemoteLabel, []models.RemoteEvent, error) {
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	client, err := s.connector.Connect(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	now := s.now()
	w := Window{Start: now.Add(-s.cfg.Lookback), End: now.Add(s.cfg.Lookahead)}

	labels, err := client.ListLabels(ctx, w)
	if err != nil {
		return nil, nil, fmt.Errorf("list labels: %w", err)
	}
	events, err := client.ListEvents(ctx, w)
	if err != nil {
		return nil, nil, fmt.Errorf("list events: %w", err)
	}
	return labels, events, nil
}
