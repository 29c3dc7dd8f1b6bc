package models

// RemoteDateTime is a wall-clock time plus the zone it is expressed in, as
// reported by the remote provider ("2026-03-02T09:30:00.0000000", "Europe/Riga").
type RemoteDateTime struct {
	DateTime string
	TimeZone string
}

// RemoteEvent is one calendar item fetched from the provider. It is consumed
// by the event reconciler and never stored as-is.
type RemoteEvent struct {
	ExternalID       string
	Title            string
	Body             string
	BodyIsHTML       bool
	Start            RemoteDateTime
	End              RemoteDateTime
	AllDay           bool
	Location         string
	OrganizerName    string
	OrganizerAddress string
	Attendees        []string
	// Labels keeps the provider's order; the first match decides the group.
	Labels []string
}

// RemoteLabel is one category fetched from the provider.
type RemoteLabel struct {
	ExternalID string
	Name       string
	ColorToken string
}
