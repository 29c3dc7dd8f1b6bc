// Package graph reads calendar events and categories from Microsoft Graph.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/reconcile"
)

const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// maxPages stops a provider that keeps returning next links.
const maxPages = 500

const pageSize = 100

// Client is a RemoteClient over an authenticated *http.Client.
type Client struct {
	http    *http.Client
	baseURL string
}

var _ reconcile.RemoteClient = (*Client)(nil)

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

type category struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

type dateTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type emailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type event struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	Start    dateTimeZone `json:"start"`
	End      dateTimeZone `json:"end"`
	IsAllDay bool         `json:"isAllDay"`
	Location struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	Organizer struct {
		EmailAddress emailAddress `json:"emailAddress"`
	} `json:"organizer"`
	Attendees []struct {
		EmailAddress emailAddress `json:"emailAddress"`
	} `json:"attendees"`
	Categories []string `json:"categories"`
}

type page[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// ListLabels returns the user's master categories.
func (c *Client) ListLabels(ctx context.Context, _ reconcile.Window) ([]models.RemoteLabel, error) {
	items, err := fetchAll[category](ctx, c, c.baseURL+"/me/outlook/masterCategories")
	if err != nil {
		return nil, fmt.Errorf("master categories: %w", err)
	}

	out := make([]models.RemoteLabel, 0, len(items))
	for _, it := range items {
		out = append(out, models.RemoteLabel{
			ExternalID: it.ID,
			Name:       it.DisplayName,
			ColorToken: it.Color,
		})
	}
	return out, nil
}

// ListEvents returns occurrences inside w, with recurring series expanded by
// the calendar view.
func (c *Client) ListEvents(ctx context.Context, w reconcile.Window) ([]models.RemoteEvent, error) {
	q := url.Values{}
	q.Set("startDateTime", w.Start.UTC().Format(time.RFC3339))
	q.Set("endDateTime", w.End.UTC().Format(time.RFC3339))
	q.Set("$top", fmt.Sprint(pageSize))
	q.Set("$orderby", "start/dateTime")

	items, err := fetchAll[event](ctx, c, c.baseURL+"/me/calendarView?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("calendar view: %w", err)
	}

	out := make([]models.RemoteEvent, 0, len(items))
	for _, it := range items {
		out = append(out, toRemoteEvent(it))
	}
	return out, nil
}

func toRemoteEvent(e event) models.RemoteEvent {
	attendees := make([]string, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		name := a.EmailAddress.Name
		if name == "" {
			name = a.EmailAddress.Address
		}
		if name != "" {
			attendees = append(attendees, name)
		}
	}
	return models.RemoteEvent{
		ExternalID:       e.ID,
		Title:            e.Subject,
		Body:             e.Body.Content,
		BodyIsHTML:       strings.EqualFold(e.Body.ContentType, "html"),
		Start:            models.RemoteDateTime{DateTime: e.Start.DateTime, TimeZone: e.Start.TimeZone},
		End:              models.RemoteDateTime{DateTime: e.End.DateTime, TimeZone: e.End.TimeZone},
		AllDay:           e.IsAllDay,
		Location:         e.Location.DisplayName,
		OrganizerName:    e.Organizer.EmailAddress.Name,
		OrganizerAddress: e.Organizer.EmailAddress.Address,
		Attendees:        attendees,
		Labels:           e.Categories,
	}
}

// fetchAll follows @odata.nextLink until the last page. Any failed page fails
// the whole fetch.
func fetchAll[T any](ctx context.Context, c *Client, next string) ([]T, error) {
	var out []T
	for pages := 0; next != ""; pages++ {
		if pages == maxPages {
			return nil, errors.New("too many pages")
		}
		var p page[T]
		if err := c.get(ctx, next, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Value...)
		next = p.NextLink
	}
	return out, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) get(ctx context.Context, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
