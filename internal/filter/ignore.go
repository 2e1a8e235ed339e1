package filter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/fabiomolinar/git2prompt/internal/pattern"
	"github.com/fabiomolinar/git2prompt/internal/utils"
)

// ErrIgnoreFileMissing reports an explicitly requested ignore file that does not exist.
var ErrIgnoreFileMissing = errors.New("ignore file not found")

const (
	unreadableIgnoreFileFormat = "ignore file %s unreadable: %w"
	missingIgnoreFileFormat    = "%w: %s"
	walkIgnoreFilesFormat      = "scan ignore files under %s: %w"
)

// LoadIgnoreFile reads gitignore-style rules from filePath. A missing file yields no rules and
// no warnings; an unreadable file yields no rules and one warning.
func LoadIgnoreFile(filePath string, options pattern.ParseOptions) ([]pattern.Rule, []error) {
	fileHandle, openError := os.Open(filePath)
	if openError != nil {
		if errors.Is(openError, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, []error{fmt.Errorf(unreadableIgnoreFileFormat, filePath, openError)}
	}
	defer fileHandle.Close()

	if options.Source == "" {
		options.Source = filePath
	}
	rules, skipped, readError := pattern.ParseRules(fileHandle, options)
	if readError != nil {
		return nil, append(skipped, fmt.Errorf(unreadableIgnoreFileFormat, filePath, readError))
	}
	return rules, skipped
}

// LoadRequiredIgnoreFile behaves like LoadIgnoreFile but reports a missing file as a warning.
func LoadRequiredIgnoreFile(filePath string, options pattern.ParseOptions) ([]pattern.Rule, []error) {
	if _, statError := os.Stat(filePath); errors.Is(statError, fs.ErrNotExist) {
		return nil, []error{fmt.Errorf(missingIgnoreFileFormat, ErrIgnoreFileMissing, filePath)}
	}
	return LoadIgnoreFile(filePath, options)
}

// TreeIgnoreOptions selects which ignore files inside a source tree are honored.
type TreeIgnoreOptions struct {
	// IncludeGitIgnore honors .gitignore files.
	IncludeGitIgnore bool
	// IgnoreFileName is the tool ignore file name looked up in every directory; empty disables it.
	IgnoreFileName string
	// OverrideRules are evaluated after the collected rules when deciding whether to descend,
	// matching the order the engine uses. Config negations can thus reopen a directory.
	OverrideRules []pattern.Rule
}

// CollectTreeIgnoreRules walks sourceRoot in lexical order and returns the rules of every
// ignore file found, each scoped to its directory. Within one directory .gitignore rules come
// before the tool ignore file so the latter can override them. Directories excluded by the rules
// collected so far, followed by the override rules, are not descended into.
func CollectTreeIgnoreRules(sourceRoot string, options TreeIgnoreOptions) ([]pattern.Rule, []error) {
	var collected []pattern.Rule
	var warnings []error

	var fileNames []string
	if options.IncludeGitIgnore {
		fileNames = append(fileNames, utils.GitIgnoreFileName)
	}
	if options.IgnoreFileName != "" {
		fileNames = append(fileNames, options.IgnoreFileName)
	}
	if len(fileNames) == 0 {
		return nil, nil
	}

	pruningRules := func() *pattern.RuleSet {
		combined := make([]pattern.Rule, 0, len(collected)+len(options.OverrideRules))
		combined = append(combined, collected...)
		combined = append(combined, options.OverrideRules...)
		ruleSet, _ := pattern.Compile(combined)
		return ruleSet
	}
	collectedRuleSet := pruningRules()
	walkError := filepath.WalkDir(sourceRoot, func(entryPath string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			warnings = append(warnings, entryError)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		relativeDirectory, relativeError := filepath.Rel(sourceRoot, entryPath)
		if relativeError != nil {
			return relativeError
		}
		relativeDirectory = pattern.NormalizePath(filepath.ToSlash(relativeDirectory))
		if relativeDirectory != "" {
			if entry.Name() == utils.GitDirectoryName {
				return filepath.SkipDir
			}
			if collectedRuleSet.Excludes(relativeDirectory, true) {
				return filepath.SkipDir
			}
		}
		collectedCount := len(collected)
		for _, fileName := range fileNames {
			rules, fileWarnings := LoadIgnoreFile(filepath.Join(entryPath, fileName), pattern.ParseOptions{
				Origin: pattern.OriginIgnoreFile,
				Base:   relativeDirectory,
				Source: path.Join(relativeDirectory, fileName),
			})
			collected = append(collected, rules...)
			warnings = append(warnings, fileWarnings...)
		}
		if len(collected) != collectedCount {
			collectedRuleSet = pruningRules()
		}
		return nil
	})
	if walkError != nil {
		warnings = append(warnings, fmt.Errorf(walkIgnoreFilesFormat, sourceRoot, walkError))
	}
	return collected, warnings
}
