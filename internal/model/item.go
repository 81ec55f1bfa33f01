package model

import "time"

// Item is a published tracking target: a piece of media behind a slug.
type Item struct {
	ID          int64      `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	MediaType   string     `json:"media_type"`
	MediaURL    string     `json:"media_url,omitempty"`
	FilePath    string     `json:"file_path,omitempty"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Media types.
const (
	MediaImage = "image"
	MediaGIF   = "gif"
	MediaVideo = "video"
	MediaLink  = "link"
)

// MediaTypes lists the media types the tracking page knows how to render.
var MediaTypes = []string{MediaImage, MediaGIF, MediaVideo, MediaLink}

// Servable reports whether the item may be shown to visitors at now.
func (i *Item) Servable(now time.Time) bool {
	return i.IsActive && !i.Expired(now)
}

// Expired reports whether the item's expiry lies at or before now.
func (i *Item) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}

// MediaSource returns the URL the media is loaded from. An uploaded file
// always wins over an external URL.
func (i *Item) MediaSource() string {
	if i.FilePath != "" {
		return i.FilePath
	}
	return i.MediaURL
}

// ItemPatch is a partial item update. Nil fields are left untouched.
// ClearExpiry removes the expiry and takes precedence over ExpiresAt.
type ItemPatch struct {
	Title       *string
	Description *string
	MediaType   *string
	MediaURL    *string
	ExpiresAt   *time.Time
	ClearExpiry bool
	IsActive    *bool
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.MediaType == nil &&
		p.MediaURL == nil && p.ExpiresAt == nil && !p.ClearExpiry && p.IsActive == nil
}
