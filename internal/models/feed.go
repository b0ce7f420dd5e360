package models

import "time"

// UploadTicket is returned when a client asks where to upload a video.
type UploadTicket struct {
	UploadURL string `json:"upload_url"`
	VideoKey  string `json:"video_key"`
}

// FeedItem is one asset as rendered in a feed or search page.
type FeedItem struct {
	ID           int64       `json:"id"`
	Owner        OwnerInfo   `json:"owner"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	VideoKey     string      `json:"video_key"`
	VideoURL     string      `json:"video_url,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	DurationSec  *int        `json:"duration_sec,omitempty"`
	Tags         []string    `json:"tags"`
	Summary      string      `json:"summary,omitempty"`
	Status       AssetStatus `json:"status"`
	AIStatus     AIJobStatus `json:"ai_status"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Page is a cursor-paginated slice of feed items.
type Page struct {
	Items      []FeedItem `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
}

// Detail is the single-asset view merging the asset row, its AI job and the
// derived summary object.
type Detail struct {
	FeedItem
	Transcript   string `json:"transcript"`
	ThumbnailKey string `json:"thumbnail_key,omitempty"`
	Visibility   string `json:"visibility"`
	ErrorMessage string `json:"error_message,omitempty"`
}
