package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/workhub/internal/client/api"
	"github.com/dmitrijs2005/workhub/internal/client/config"
)

// API is the subset of the REST client the commands use.
type API interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	AuthorizationURL(ctx context.Context, state string) (string, error)
	Connect(ctx context.Context, code string) error
	Disconnect(ctx context.Context) error
	Sync(ctx context.Context) (*api.SyncResult, error)
	Labels(ctx context.Context) ([]api.Label, error)
	CreateLabel(ctx context.Context, name, color string) (*api.Label, error)
	DeleteLabel(ctx context.Context, id string) error
	Groups(ctx context.Context) ([]api.Group, error)
	CreateGroup(ctx context.Context, name, description string) (*api.Group, error)
	Schedules(ctx context.Context, from, to time.Time) ([]api.Schedule, error)
	SetToken(token string)
	Token() string
}

type App struct {
	api      API
	userName string
	out      io.Writer
	now      func() time.Time
}

func NewApp(c *config.Config) *App {
	return &App{
		api: api.NewClient(c.ServerURL, c.RequestTimeout),
		out: os.Stdout,
		now: time.Now,
	}
}

func (a *App) isLoggedIn() bool { return a.api.Token() != "" }

func (a *App) status() string {
	if a.userName == "" {
		return "(not logged in)"
	}
	return a.userName
}

// Root runs the REPL on stdin until the user exits or ctx is cancelled.
func (a *App) Root(ctx context.Context) {
	printlnFn("workhub client (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}
