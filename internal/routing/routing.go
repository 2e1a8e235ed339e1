// Package routing assigns included files to output documents.
package routing

import (
	"strings"

	"github.com/fabiomolinar/git2prompt/internal/pattern"
	"github.com/fabiomolinar/git2prompt/internal/utils"
)

// DefaultBucket receives every file outside the split folders.
const DefaultBucket = "default"

// Key identifies one output document.
type Key struct {
	// Repository is empty in merge mode.
	Repository string
	Bucket     string
}

// IsDefault reports whether the key names the default bucket.
func (key Key) IsDefault() bool {
	return key.Bucket == DefaultBucket
}

// String renders the key for logs.
func (key Key) String() string {
	if key.Repository == "" {
		return key.Bucket
	}
	return key.Repository + ":" + key.Bucket
}

// Table maps split-folder prefixes to buckets. It is read-only after construction.
type Table struct {
	prefixes []string
	merge    bool
}

// NewTable normalizes and deduplicates the split folders. Empty entries are dropped.
func NewTable(splitFolders []string, merge bool) *Table {
	normalized := make([]string, 0, len(splitFolders))
	for _, folder := range splitFolders {
		if normalizedFolder := pattern.NormalizePath(folder); normalizedFolder != "" {
			normalized = append(normalized, normalizedFolder)
		}
	}
	return &Table{prefixes: utils.DeduplicatePatterns(normalized), merge: merge}
}

// Buckets returns the split folders in declaration order.
func (table *Table) Buckets() []string {
	return append([]string(nil), table.prefixes...)
}

// Merge reports whether keys are shared across repositories.
func (table *Table) Merge() bool {
	return table.merge
}

// Bucket returns the longest split folder containing relativePath, or DefaultBucket.
func (table *Table) Bucket(relativePath string) string {
	normalizedPath := pattern.NormalizePath(relativePath)
	bucket := DefaultBucket
	longestMatch := 0
	for _, prefix := range table.prefixes {
		if len(prefix) <= longestMatch {
			continue
		}
		if normalizedPath == prefix || strings.HasPrefix(normalizedPath, prefix+"/") {
			bucket = prefix
			longestMatch = len(prefix)
		}
	}
	return bucket
}

// Route returns the document key for a file of repository.
func (table *Table) Route(repository string, relativePath string) Key {
	key := Key{Bucket: table.Bucket(relativePath)}
	if !table.merge {
		key.Repository = repository
	}
	return key
}
