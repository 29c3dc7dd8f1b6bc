package graph

import (
	"context"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/workhub/internal/logging"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/reconcile"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

var Scopes = []string{"offline_access", "Calendars.Read", "MailboxSettings.Read"}

type Config struct {
	ClientID     string
	ClientSecret string
	Tenant       string
	RedirectURL  string
	BaseURL      string
	// TokenURL overrides the Azure AD token endpoint.
	TokenURL string
}

// TokenSaver persists a token the connector obtained by refreshing.
type TokenSaver func(ctx context.Context, userID string, tok *oauth2.Token) error

// Connector turns stored user credentials into Graph clients. Refreshed
// tokens are handed to the TokenSaver so the next run starts from them.
type Connector struct {
	oauth   *oauth2.Config
	baseURL string
	save    TokenSaver
	log     logging.Logger
	// transport is used for both token refreshes and API calls when set.
	transport *http.Client
}

var _ reconcile.Connector = (*Connector)(nil)

func NewConnector(cfg Config, save TokenSaver, log logging.Logger) *Connector {
	tenant := cfg.Tenant
	if tenant == "" {
		tenant = "common"
	}
	endpoint := microsoft.AzureADEndpoint(tenant)
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	return &Connector{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     endpoint,
		},
		baseURL: cfg.BaseURL,
		save:    save,
		log:     log.With("module", "graph"),
	}
}

func (c *Connector) withTransport(ctx context.Context) context.Context {
	if c.transport != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, c.transport)
	}
	return ctx
}

// AuthCodeURL is where the user grants calendar access.
func (c *Connector) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (c *Connector) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.oauth.Exchange(c.withTransport(ctx), code)
}

func (c *Connector) Connect(ctx context.Context, user *models.User) (reconcile.RemoteClient, error) {
	ctx = c.withTransport(ctx)
	tok := &oauth2.Token{
		AccessToken:  user.RemoteAccessToken,
		RefreshToken: user.RemoteRefreshToken,
		Expiry:       user.RemoteTokenExpiry,
		TokenType:    "Bearer",
	}
	src := &savingSource{
		ctx:    ctx,
		userID: user.ID,
		base:   c.oauth.TokenSource(ctx, tok),
		last:   tok.AccessToken,
		save:   c.save,
		log:    c.log,
	}
	return NewClient(oauth2.NewClient(ctx, src), c.baseURL), nil
}

type savingSource struct {
	ctx    context.Context
	userID string
	base   oauth2.TokenSource
	save   TokenSaver
	log    logging.Logger

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if s.save != nil {
			if err := s.save(s.ctx, s.userID, tok); err != nil {
				s.log.Warn(s.ctx, "refreshed token not saved", "user_id", s.userID, "error", err)
			}
		}
	}
	return tok, nil
}
