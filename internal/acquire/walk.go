// Package acquire materializes sources on disk and enumerates their files.
package acquire

import (
	"io/fs"
	"iter"
	"path/filepath"

	"github.com/fabiomolinar/git2prompt/internal/utils"
)

// WalkOptions tune enumeration.
type WalkOptions struct {
	// Prune receives a slash-separated relative directory and returns true to skip it.
	Prune func(relativeDirectory string) bool
	// OnError receives entries that could not be read. Enumeration continues.
	OnError func(entryPath string, walkError error)
}

// Walk lazily yields (relative, absolute) pairs for every regular file below root in lexical
// order. The sequence is finite and can be iterated again. The .git directory is never entered.
func Walk(root string, options WalkOptions) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		stopped := false
		_ = filepath.WalkDir(root, func(entryPath string, entry fs.DirEntry, entryError error) error {
			if stopped {
				return filepath.SkipAll
			}
			if entryError != nil {
				if options.OnError != nil {
					options.OnError(entryPath, entryError)
				}
				if entry != nil && entry.IsDir() && entryPath != root {
					return filepath.SkipDir
				}
				return nil
			}
			if entryPath == root {
				return nil
			}
			relativePath, relativeError := filepath.Rel(root, entryPath)
			if relativeError != nil {
				if options.OnError != nil {
					options.OnError(entryPath, relativeError)
				}
				return nil
			}
			relativePath = filepath.ToSlash(relativePath)
			if entry.IsDir() {
				if entry.Name() == utils.GitDirectoryName {
					return filepath.SkipDir
				}
				if options.Prune != nil && options.Prune(relativePath) {
					return filepath.SkipDir
				}
				return nil
			}
			if !entry.Type().IsRegular() {
				return nil
			}
			if !yield(relativePath, entryPath) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
	}
}
