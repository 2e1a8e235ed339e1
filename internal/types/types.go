// Package types defines the cross-package data structures used by git2prompt.
package types

import (
	"os"
	"path"
	"strings"
	"sync"
)

// FileCandidate is one discovered file. It is immutable apart from its lazily loaded content.
type FileCandidate struct {
	segments     []string
	absolutePath string
	extension    string

	loadOnce    sync.Once
	content     []byte
	loadFailure error
}

// NewFileCandidate builds a candidate from a slash-separated relative path and its absolute location.
func NewFileCandidate(relativePath string, absolutePath string) *FileCandidate {
	cleanRelative := strings.Trim(path.Clean(strings.ReplaceAll(relativePath, `\`, "/")), "/")
	return &FileCandidate{
		segments:     strings.Split(cleanRelative, "/"),
		absolutePath: absolutePath,
		extension:    strings.ToLower(strings.TrimPrefix(path.Ext(cleanRelative), ".")),
	}
}

// Path returns the slash-separated relative path.
func (candidate *FileCandidate) Path() string {
	return strings.Join(candidate.segments, "/")
}

// Segments returns a copy of the relative path segments.
func (candidate *FileCandidate) Segments() []string {
	return append([]string(nil), candidate.segments...)
}

// BaseName returns the last path segment.
func (candidate *FileCandidate) BaseName() string {
	return candidate.segments[len(candidate.segments)-1]
}

// AbsolutePath returns the on-disk location.
func (candidate *FileCandidate) AbsolutePath() string {
	return candidate.absolutePath
}

// Extension returns the lower-case extension without the leading dot.
func (candidate *FileCandidate) Extension() string {
	return candidate.extension
}

// Load reads the file content on first use and returns the cached result afterwards.
func (candidate *FileCandidate) Load() ([]byte, error) {
	candidate.loadOnce.Do(func() {
		candidate.content, candidate.loadFailure = os.ReadFile(candidate.absolutePath)
	})
	return candidate.content, candidate.loadFailure
}
