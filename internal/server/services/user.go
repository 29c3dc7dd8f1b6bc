// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login and the user's connection
// to the remote calendar provider.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/server/auth"
	"github.com/dmitrijs2005/workhub/internal/server/config"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// RemoteAuthorizer runs the provider's OAuth authorization-code flow.
type RemoteAuthorizer interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// RemoteCredentials is what a client may hand over to connect a user: either
// an authorization code to exchange, or tokens obtained elsewhere.
type RemoteCredentials struct {
	Code         string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// UserService provides account operations:
// - Register: create users with a bcrypt password hash
// - Login: verify credentials and mint an access token
// - ConnectRemote / DisconnectRemote: manage stored provider tokens
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	authorizer                  RemoteAuthorizer
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, authorizer RemoteAuthorizer, cfg *config.Config) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		authorizer:                  authorizer,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a new user. A taken username yields common.ErrNameConflict.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrorValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, &models.User{UserName: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrNameConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login verifies the password and, on success, returns a signed access token.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// AuthorizationURL is where the client sends the user to grant calendar access.
func (s *UserService) AuthorizationURL(state string) string {
	return s.authorizer.AuthCodeURL(state)
}

// ConnectRemote stores the user's provider tokens. When creds carries an
// authorization code it is exchanged first.
func (s *UserService) ConnectRemote(ctx context.Context, userID string, creds RemoteCredentials) error {
	if creds.Code != "" {
		tok, err := s.authorizer.Exchange(ctx, creds.Code)
		if err != nil {
			return fmt.Errorf("%w: exchange authorization code: %v", common.ErrorUnauthorized, err)
		}
		creds.AccessToken = tok.AccessToken
		creds.RefreshToken = tok.RefreshToken
		creds.Expiry = tok.Expiry
	}
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return fmt.Errorf("%w: a code or a token is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateRemoteToken(ctx, userID, creds.AccessToken, creds.RefreshToken, creds.Expiry); err != nil {
		return fmt.Errorf("error storing remote token: %w", err)
	}
	return nil
}

// DisconnectRemote forgets the user's provider tokens. Already synced data stays.
func (s *UserService) DisconnectRemote(ctx context.Context, userID string) error {
	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateRemoteToken(ctx, userID, "", "", time.Time{}); err != nil {
		return fmt.Errorf("error clearing remote token: %w", err)
	}
	return nil
}
