package models

import "time"

type GroupStatus string

const (
	GroupActive  GroupStatus = "ACTIVE"
	GroupDeleted GroupStatus = "DELETED"
)

// Group is a work-item group mirrored by a Label of the same name.
// Name is unique among a user's active groups.
type Group struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Status      GroupStatus
	CreatedAt   time.Time
}

// GroupFile is a file attached to a group. The content lives in object
// storage under StorageKey.
type GroupFile struct {
	ID         string
	GroupID    string
	UserID     string
	FileName   string
	StorageKey string
	// UploadStatus is "pending" until the client confirms the upload.
	UploadStatus string
	CreatedAt    time.Time
}
