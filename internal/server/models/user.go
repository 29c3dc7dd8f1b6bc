package models

import "time"

// User owns every label, group and schedule record. Remote tokens are kept
// in plaintext here; the users repository encrypts them at rest.
type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
	CreatedAt    time.Time

	RemoteAccessToken  string
	RemoteRefreshToken string
	RemoteTokenExpiry  time.Time
}

// RemoteConnected reports whether the user has credentials a sync can use.
func (u *User) RemoteConnected() bool {
	return u.RemoteRefreshToken != "" || u.RemoteAccessToken != ""
}
