package models

import "time"

// Label is a user-scoped category. Name is unique per user.
type Label struct {
	ID              string
	UserID          string
	Name            string
	Color           string
	ExternalLabelID string
	IsFromRemote    bool
	DisplayOrder    int
	// IsDefault marks system labels that are never deleted automatically.
	IsDefault bool
	CreatedAt time.Time
}
