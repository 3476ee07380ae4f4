// Package models defines core data structures for media entries, queries, and search results.
package models

import (
	"fmt"
	"time"
)

// FileType is the kind of media a file holds.
type FileType string

const (
	// FileTypeImage is a still image (photo).
	FileTypeImage FileType = "image"
	// FileTypeVideo is a video.
	FileTypeVideo FileType = "video"
)

// Valid reports whether t is a known file type.
func (t FileType) Valid() bool {
	return t == FileTypeImage || t == FileTypeVideo
}

// ParseFileType converts a string to a FileType.
func ParseFileType(s string) (FileType, error) {
	t := FileType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown file type %q (supported: image, video)", s)
	}
	return t, nil
}

// MediaEntry is one indexed media file. The ordinal is the entry's insertion
// position, assigned sequentially from 0, never reused or reassigned. It is
// redundant with the entry's position in the persisted list but stored anyway
// for stability across format changes.
type MediaEntry struct {
	Ordinal  int       `json:"ordinal"`
	FilePath string    `json:"file_path"`
	FileType FileType  `json:"file_type"`
	AddedAt  time.Time `json:"added_at"`
}

// IndexStats summarizes the index contents. Dimensions is 0 until the first add.
type IndexStats struct {
	Total      int `json:"total"`
	Images     int `json:"images"`
	Videos     int `json:"videos"`
	Dimensions int `json:"dimensions"`
}
