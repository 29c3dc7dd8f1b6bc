// Package server wires the workhub backend together: database, remote
// provider connector, reconciliation engine, REST API and background sync.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/workhub/internal/cryptox"
	"github.com/dmitrijs2005/workhub/internal/logging"
	"github.com/dmitrijs2005/workhub/internal/server/config"
	"github.com/dmitrijs2005/workhub/internal/server/httpapi"
	"github.com/dmitrijs2005/workhub/internal/server/reconcile"
	"github.com/dmitrijs2005/workhub/internal/server/remote/graph"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/workhub/internal/server/scheduler"
	"github.com/dmitrijs2005/workhub/internal/server/services"
)

// Seams for tests.
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	runMigrations = func(ctx context.Context, m repomanager.RepositoryManager, db *sql.DB) error {
		return m.RunMigrations(ctx, db)
	}
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	http      *httpapi.Server
	scheduler *scheduler.Scheduler
}

// NewApp opens the database, applies migrations and builds every component.
// Logs go to logOut.
func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	logger := logging.New(logOut, c.LogLevel, c.LogFormat)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	cipher, err := cryptox.NewEncryptor(c.EncryptionKey)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("token cipher: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager(cipher)
	if err := runMigrations(ctx, repos, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	connector := graph.NewConnector(graph.Config{
		ClientID:     c.RemoteClientID,
		ClientSecret: c.RemoteClientSecret,
		Tenant:       c.RemoteTenant,
		RedirectURL:  c.RemoteRedirectURL,
		BaseURL:      c.RemoteBaseURL,
	}, tokenSaver(db, repos), logger)

	syncer := reconcile.NewSyncer(db, repos, connector, reconcile.SyncerConfig{
		FetchTimeout: c.FetchTimeout,
		Lookback:     c.SyncLookback,
		Lookahead:    c.SyncLookahead,
	}, logger)
	mirror := reconcile.NewMirror(repos, logger)

	us := services.NewUserService(db, repos, connector, c)
	ls := services.NewLabelService(db, repos, mirror, logger)
	gs := services.NewGroupService(db, repos, mirror, services.NewS3FileStore(c), logger)
	ss := services.NewScheduleService(db, repos, syncer)

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		http:      httpapi.NewServer(c.ListenAddr, logger, us, ls, gs, ss, c.SecretKey, c.ShutdownTimeout),
		scheduler: scheduler.New(repos.Users(db), syncer, c.SyncCron, c.SyncConcurrency, logger),
	}, nil
}

// tokenSaver persists tokens the connector refreshed during a sync.
func tokenSaver(db *sql.DB, repos repomanager.RepositoryManager) graph.TokenSaver {
	return func(ctx context.Context, userID string, tok *oauth2.Token) error {
		return repos.Users(db).UpdateRemoteToken(ctx, userID, tok.AccessToken, tok.RefreshToken, tok.Expiry)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the API and the background sync until ctx is cancelled or a
// termination signal arrives, then closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(gctx) })
	g.Go(func() error { return app.scheduler.Run(gctx) })

	err := g.Wait()
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
