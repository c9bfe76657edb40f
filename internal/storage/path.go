// Package storage implements the filesystem blob store.
// Blobs are addressed purely by their fingerprint-derived placement path; no
// directory scan is ever required to locate a blob.
package storage

import (
	"fmt"
	"path/filepath"
)

// Directory sharding bounds fan-out: two 2-character levels derived from the
// fingerprint prefix, then the full fingerprint plus the original extension as
// the leaf filename.
const (
	shardLevels = 2
	shardWidth  = 2

	// mediaDir is the subdirectory of the storage root that holds blobs.
	mediaDir = "media"
)

// PlacementPath derives the relative blob path for a fingerprint and original
// file extension. The function is pure: identical inputs always yield an
// identical path, and distinct fingerprints yield distinct paths.
//
// Example:
//
//	fingerprint: "abcdef1234..."
//	ext:         ".jpg"
//	result:      "media/ab/cd/abcdef1234....jpg"
func PlacementPath(fingerprint, ext string) string {
	return filepath.Join(append(shardDirs(fingerprint), fingerprint+ext)...)
}

// CopyPlacementPath derives the path for a forced physical copy (ALLOW
// policy). The copy sequence is folded into the leaf filename so the copy
// never collides with the canonical blob of the same fingerprint.
func CopyPlacementPath(fingerprint string, copySeq int, ext string) string {
	if copySeq <= 0 {
		return PlacementPath(fingerprint, ext)
	}
	leaf := fmt.Sprintf("%s.%d%s", fingerprint, copySeq, ext)
	return filepath.Join(append(shardDirs(fingerprint), leaf)...)
}

// ShardPath returns the directory portion of a blob path, useful for creating
// the directory structure before a copy.
func ShardPath(fingerprint string) string {
	return filepath.Join(shardDirs(fingerprint)...)
}

func shardDirs(fingerprint string) []string {
	minLength := shardLevels * shardWidth
	if len(fingerprint) < minLength {
		return []string{mediaDir}
	}

	dirs := make([]string, 0, shardLevels+1)
	dirs = append(dirs, mediaDir)
	offset := 0
	for i := 0; i < shardLevels; i++ {
		dirs = append(dirs, fingerprint[offset:offset+shardWidth])
		offset += shardWidth
	}
	return dirs
}
