// Package api is a thin HTTP client for the workhub REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/workhub/internal/common"
)

// Error is a non-2xx response. It unwraps to the matching common sentinel
// so callers can use errors.Is.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return common.ErrorValidation
	case http.StatusUnauthorized:
		return common.ErrorUnauthorized
	case http.StatusNotFound:
		return common.ErrorNotFound
	case http.StatusConflict:
		return common.ErrNameConflict
	case http.StatusBadGateway:
		return common.ErrSyncFailed
	default:
		return common.ErrorInternal
	}
}

type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

type Label struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	IsFromRemote bool   `json:"is_from_remote"`
	IsDefault    bool   `json:"is_default"`
	DisplayOrder int    `json:"display_order"`
}

type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type Schedule struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	AllDay       bool      `json:"all_day"`
	Location     string    `json:"location"`
	IsFromRemote bool      `json:"is_from_remote"`
	LabelIDs     []string  `json:"label_ids"`
}

// Client talks to one workhub server. The access token set by Login is
// attached to every subsequent request.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetToken(token string) { c.token = token }
func (c *Client) Token() string         { return c.token }

func (c *Client) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, "/v1/users", body, nil)
}

// Login stores the returned access token on the client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/login", body, &out); err != nil {
		return err
	}
	c.token = out.AccessToken
	return nil
}

func (c *Client) AuthorizationURL(ctx context.Context, state string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	p := "/v1/remote/authorize?state=" + url.QueryEscape(state)
	if err := c.do(ctx, http.MethodGet, p, nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) Connect(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPut, "/v1/remote/connection", map[string]string{"code": code}, nil)
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/remote/connection", nil, nil)
}

func (c *Client) Sync(ctx context.Context) (*SyncResult, error) {
	var out SyncResult
	if err := c.do(ctx, http.MethodPost, "/v1/sync", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Labels(ctx context.Context) ([]Label, error) {
	var out []Label
	if err := c.do(ctx, http.MethodGet, "/v1/labels", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateLabel(ctx context.Context, name, color string) (*Label, error) {
	var out Label
	body := map[string]string{"name": name, "color": color}
	if err := c.do(ctx, http.MethodPost, "/v1/labels", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteLabel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/labels/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	var out []Group
	if err := c.do(ctx, http.MethodGet, "/v1/groups", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateGroup(ctx context.Context, name, description string) (*Group, error) {
	var out Group
	body := map[string]any{"name": name, "description": description}
	if err := c.do(ctx, http.MethodPost, "/v1/groups", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Schedules(ctx context.Context, from, to time.Time) ([]Schedule, error) {
	q := url.Values{}
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))

	var out []Schedule
	if err := c.do(ctx, http.MethodGet, "/v1/schedules?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &Error{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
