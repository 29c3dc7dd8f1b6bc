// Package httpapi exposes workhub over a JSON REST API.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/workhub/internal/logging"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/reconcile"
	"github.com/dmitrijs2005/workhub/internal/server/services"
)

type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	AuthorizationURL(state string) string
	ConnectRemote(ctx context.Context, userID string, creds services.RemoteCredentials) error
	DisconnectRemote(ctx context.Context, userID string) error
}

type LabelService interface {
	List(ctx context.Context, userID string) ([]*models.Label, error)
	Create(ctx context.Context, userID, name, color string) (*models.Label, error)
	Update(ctx context.Context, userID, id, name, color string) (*models.Label, error)
	Delete(ctx context.Context, userID, id string) error
}

type GroupService interface {
	List(ctx context.Context, userID string) ([]*models.Group, error)
	Create(ctx context.Context, userID, name, description string) (*models.Group, error)
	Update(ctx context.Context, userID, id, name string, description *string) (*models.Group, error)
	Delete(ctx context.Context, userID, id string) error
	AttachFile(ctx context.Context, userID, groupID, fileName string) (*services.UploadTicket, error)
	CompleteUpload(ctx context.Context, userID, groupID, fileID string) error
	ListFiles(ctx context.Context, userID, groupID string) ([]*models.GroupFile, error)
	DownloadURL(ctx context.Context, userID, groupID, fileID string) (string, error)
}

type ScheduleService interface {
	List(ctx context.Context, userID string, from, to time.Time) ([]*models.Schedule, error)
	Sync(ctx context.Context, userID string) (reconcile.Result, error)
}

// Server routes REST requests to the services.
type Server struct {
	address         string
	users           UserService
	labels          LabelService
	groups          GroupService
	schedules       ScheduleService
	logger          logging.Logger
	jwtSecret       []byte
	shutdownTimeout time.Duration
	now             func() time.Time
}

func NewServer(address string, l logging.Logger, us UserService, ls LabelService, gs GroupService, ss ScheduleService, secretKey string, shutdownTimeout time.Duration) *Server {
	return &Server{
		address:         address,
		users:           us,
		labels:          ls,
		groups:          gs,
		schedules:       ss,
		logger:          l.With("module", "http_server"),
		jwtSecret:       []byte(secretKey),
		shutdownTimeout: shutdownTimeout,
		now:             time.Now,
	}
}

// Handler returns the routed API with authentication applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/users", s.handleRegister)
	mux.HandleFunc("POST /v1/login", s.handleLogin)

	mux.Handle("GET /v1/remote/authorize", s.authenticated(s.handleAuthorize))
	mux.Handle("PUT /v1/remote/connection", s.authenticated(s.handleConnect))
	mux.Handle("DELETE /v1/remote/connection", s.authenticated(s.handleDisconnect))
	mux.Handle("POST /v1/sync", s.authenticated(s.handleSync))

	mux.Handle("GET /v1/labels", s.authenticated(s.handleListLabels))
	mux.Handle("POST /v1/labels", s.authenticated(s.handleCreateLabel))
	mux.Handle("PATCH /v1/labels/{id}", s.authenticated(s.handleUpdateLabel))
	mux.Handle("DELETE /v1/labels/{id}", s.authenticated(s.handleDeleteLabel))

	mux.Handle("GET /v1/groups", s.authenticated(s.handleListGroups))
	mux.Handle("POST /v1/groups", s.authenticated(s.handleCreateGroup))
	mux.Handle("PATCH /v1/groups/{id}", s.authenticated(s.handleUpdateGroup))
	mux.Handle("DELETE /v1/groups/{id}", s.authenticated(s.handleDeleteGroup))
	mux.Handle("GET /v1/groups/{id}/files", s.authenticated(s.handleListFiles))
	mux.Handle("POST /v1/groups/{id}/files", s.authenticated(s.handleAttachFile))
	mux.Handle("POST /v1/groups/{id}/files/{fileID}/complete", s.authenticated(s.handleCompleteUpload))
	mux.Handle("GET /v1/groups/{id}/files/{fileID}/download", s.authenticated(s.handleDownloadFile))

	mux.Handle("GET /v1/schedules", s.authenticated(s.handleListSchedules))

	return s.recoverer(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
