package storage

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	// FolderVideos is the prefix for uploaded videos: videos/{owner}/{uuid}_{file}.
	FolderVideos = "videos"
	// ThumbnailSuffix replaces the video extension to form the thumbnail key.
	ThumbnailSuffix = "_thumbnail.jpg"
	// DefaultVideoExt is used when a video key carries no extension.
	DefaultVideoExt = ".mp4"
)

// VideoKey returns a collision-resistant key for an owner's upload.
func VideoKey(ownerID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "video" + DefaultVideoExt
	}
	return path.Join(FolderVideos, ownerID, uuid.New().String()+"_"+name)
}

// ThumbnailKey derives the thumbnail key from a video key:
// videos/u1/abc_clip.mp4 -> videos/u1/abc_clip_thumbnail.jpg.
func ThumbnailKey(videoKey string) string {
	return strings.TrimSuffix(videoKey, path.Ext(videoKey)) + ThumbnailSuffix
}

// VideoExt returns the lowercased extension of a video key, DefaultVideoExt when absent.
func VideoExt(videoKey string) string {
	if ext := path.Ext(videoKey); ext != "" {
		return strings.ToLower(ext)
	}
	return DefaultVideoExt
}

// OwnerFromVideoKey returns the owner segment of videos/{owner}/..., or "" when the key does not match.
func OwnerFromVideoKey(videoKey string) string {
	parts := strings.Split(videoKey, "/")
	if len(parts) < 3 || parts[0] != FolderVideos || parts[1] == "" {
		return ""
	}
	return parts[1]
}
