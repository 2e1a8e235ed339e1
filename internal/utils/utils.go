// Package utils contains general helper functions used across git2prompt.
package utils

import (
	"path/filepath"
	"strings"
)

// Control file constants used across the project.
const (
	// IgnoreFileName is the name of the tool's ignore file.
	IgnoreFileName = ".git2promptignore"
	// ConfigFileName is the name of the tool's configuration file.
	ConfigFileName = ".git2promptconfig"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
)

var controlFiles = map[string]struct{}{
	IgnoreFileName: {},
	ConfigFileName: {},
}

// binaryExtensions lists file extensions that are never rendered.
var binaryExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {}, ".webp": {},
	".zip": {}, ".tar": {}, ".gz": {}, ".tgz": {}, ".bz2": {}, ".xz": {}, ".7z": {}, ".rar": {},
	".bin": {}, ".o": {}, ".a": {}, ".so": {}, ".dll": {}, ".dylib": {}, ".exe": {}, ".class": {}, ".jar": {}, ".der": {},
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
}

// IsControlFile reports whether the base name belongs to one of the tool's own files.
func IsControlFile(baseName string) bool {
	_, isControl := controlFiles[baseName]
	return isControl
}

// HasBinaryExtension reports whether the file name carries a known binary extension.
func HasBinaryExtension(fileName string) bool {
	_, isBinary := binaryExtensions[strings.ToLower(filepath.Ext(fileName))]
	return isBinary
}

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// SafeFileComponent replaces path separators so a value can be embedded in a file name.
func SafeFileComponent(value string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(value)
}
