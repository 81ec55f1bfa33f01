package model

import "time"

// Unknown is recorded when a visitor's IP address or user agent is unavailable.
const Unknown = "Unknown"

// Location is one capture attempt recorded for an item slug. Rows are
// append-only and may outlive the item they reference.
type Location struct {
	ID        int64     `json:"id"`
	ItemSlug  string    `json:"item_slug"`
	ItemTitle string    `json:"item_title,omitempty"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Timestamp time.Time `json:"timestamp"`
}

// HasCoordinates reports whether the visitor shared a position.
func (l *Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// LocationFilter narrows a location listing. Zero values mean "no filter".
type LocationFilter struct {
	ItemSlug string
	Start    *time.Time
	End      *time.Time
	Limit    int
}
