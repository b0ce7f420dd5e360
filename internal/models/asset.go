package models

import "time"

// AssetStatus is the enrichment state of a short-form video.
type AssetStatus string

const (
	AssetStatusReady         AssetStatus = "READY"
	AssetStatusProcessingSTT AssetStatus = "PROCESSING_STT"
	AssetStatusReadyWithAI   AssetStatus = "READY_WITH_AI"
	AssetStatusFailed        AssetStatus = "FAILED"
)

// Visibility values.
const (
	VisibilityPublic  = "PUBLIC"
	VisibilityPrivate = "PRIVATE"
)

var assetStatusRank = map[AssetStatus]int{
	AssetStatusReady:         0,
	AssetStatusProcessingSTT: 1,
	AssetStatusReadyWithAI:   2,
}

// Valid reports whether s is a known status.
func (s AssetStatus) Valid() bool {
	_, ok := assetStatusRank[s]
	return ok || s == AssetStatusFailed
}

// Terminal reports whether no further automatic transition is expected.
func (s AssetStatus) Terminal() bool {
	return s == AssetStatusReadyWithAI || s == AssetStatusFailed
}

// CanTransitionTo reports whether moving from s to next keeps the status
// monotonic. Any state may fail; FAILED never moves again.
func (s AssetStatus) CanTransitionTo(next AssetStatus) bool {
	if s == AssetStatusFailed {
		return next == AssetStatusFailed
	}
	if next == AssetStatusFailed {
		return true
	}
	from, ok1 := assetStatusRank[s]
	to, ok2 := assetStatusRank[next]
	return ok1 && ok2 && to >= from
}

// Asset is one uploaded short-form video (short_forms row).
type Asset struct {
	ID           int64       `json:"id"`
	OwnerID      string      `json:"owner_pid"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	VideoKey     string      `json:"video_key"`
	ThumbnailKey *string     `json:"thumbnail_key,omitempty"`
	DurationSec  *int        `json:"duration_sec,omitempty"`
	Tags         []string    `json:"tags"`
	Visibility   string      `json:"visibility"`
	Status       AssetStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
