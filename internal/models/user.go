package models

// OwnerInfo is the public profile shown next to an asset.
type OwnerInfo struct {
	PID             string `json:"pid"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	IsFollowed      bool   `json:"is_followed"`
}
