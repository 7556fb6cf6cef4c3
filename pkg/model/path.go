// Package model provides the data structures shared by the modstack packages:
// patch descriptions, the reversible apply history and the patch library record.
package model

import (
	"path"
	"strings"
)

// PatchFilePath identifies a file either on disk below the install root (empty
// Location) or inside the archive at Location.
type PatchFilePath struct {
	// Location is the archive path relative to the install root; empty for loose files.
	Location string `json:"location,omitempty"`
	// LocationID selects the archive manager able to read Location.
	LocationID string `json:"location_id,omitempty"`
	// FilePath is relative to Location.
	FilePath string `json:"file_path"`
}

// NormalizePath lower-cases p, unifies separators to '/' and strips leading and
// trailing separators. The empty string stays empty.
func NormalizePath(p string) string {
	p = strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return p
}

// IsPhysical reports whether the file lives directly on disk.
func (p PatchFilePath) IsPhysical() bool {
	return NormalizePath(p.Location) == ""
}

// NormalizedLocation returns the normalized Location.
func (p PatchFilePath) NormalizedLocation() string {
	return NormalizePath(p.Location)
}

// NormalizedFilePath returns the normalized FilePath.
func (p PatchFilePath) NormalizedFilePath() string {
	return NormalizePath(p.FilePath)
}

// Key is the identity of a file: two paths with equal keys are the same file.
func (p PatchFilePath) Key() string {
	return p.NormalizedLocation() + "|" + p.NormalizedFilePath()
}

// Dir returns the slash-separated directory part of FilePath ("" at the top level).
func (p PatchFilePath) Dir() string {
	dir := path.Dir(strings.ReplaceAll(p.FilePath, "\\", "/"))
	if dir == "." || dir == "/" {
		return ""
	}
	return strings.Trim(dir, "/")
}

// Base returns the file name part of FilePath.
func (p PatchFilePath) Base() string {
	return path.Base(strings.ReplaceAll(p.FilePath, "\\", "/"))
}

func (p PatchFilePath) String() string {
	if p.IsPhysical() {
		return p.FilePath
	}
	return p.Location + ":" + p.FilePath
}
