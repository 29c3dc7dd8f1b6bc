// Package models defines server-side data models persisted in the database
// and the ephemeral shapes fetched from the remote calendar provider.
package models

import "time"

// Schedule is a calendar entry. Records with ExternalEventID set were
// imported from the remote provider and always have IsFromRemote=true.
type Schedule struct {
	ID          string
	UserID      string
	Title       string
	Description string
	StartAt     time.Time
	EndAt       time.Time
	AllDay      bool
	Color       string
	Location    string
	Organizer   string
	// Attendees is the flattened, comma separated attendee list.
	Attendees string

	ExternalEventID string
	IsFromRemote    bool

	// LabelIDs is the many-to-many association to Label, kept sorted.
	LabelIDs []string
	// GroupID is empty when the schedule has no group.
	GroupID string

	CreatedAt time.Time
	UpdatedAt time.Time
}
