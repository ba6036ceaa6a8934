package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MediaKind enumerates the playable media types.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// extensionKinds maps lowercase file extensions (without the dot) to media kinds.
var extensionKinds = map[string]MediaKind{
	"png":  KindImage,
	"jpg":  KindImage,
	"jpeg": KindImage,
	"gif":  KindImage,
	"bmp":  KindImage,
	"mp4":  KindVideo,
	"avi":  KindVideo,
	"mov":  KindVideo,
	"mkv":  KindVideo,
	"wmv":  KindVideo,
}

// KindForFilename resolves the media kind from a filename extension.
func KindForFilename(name string) (MediaKind, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return "", fmt.Errorf("filename %q has no extension", name)
	}
	kind, ok := extensionKinds[ext]
	if !ok {
		return "", fmt.Errorf("unsupported media extension %q", ext)
	}
	return kind, nil
}

// ContentItem is one playable unit of a location playlist.
//
// The JSON field names match the on-disk content list format, so a playlist
// file written by an older deployment loads unchanged.
type ContentItem struct {
	ID              int64     `json:"id"`
	Filename        string    `json:"filename"`
	Kind            MediaKind `json:"type"`
	OrderIndex      int       `json:"order"`
	DurationSeconds int       `json:"duration"`
	IsActive        bool      `json:"is_active"`
}

// Location describes one display site from the static location directory.
type Location struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Address string `yaml:"address" json:"address"`
}
