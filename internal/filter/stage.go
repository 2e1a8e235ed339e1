// Package filter decides which discovered files take part in a run.
package filter

import (
	"path"
	"strings"

	"github.com/fabiomolinar/git2prompt/internal/pattern"
	"github.com/fabiomolinar/git2prompt/internal/utils"
)

// Tier identifies the stage that produced a decision.
type Tier int

const (
	// TierNone means no stage matched the path.
	TierNone Tier = iota
	// TierBuiltIn covers the tool's fixed exclusions.
	TierBuiltIn
	// TierIgnoreFile covers rules read from ignore files.
	TierIgnoreFile
	// TierConfig covers configuration and command line patterns.
	TierConfig
	// TierRestriction covers the folder or pull request restriction.
	TierRestriction
)

// String returns a short label for the tier.
func (tier Tier) String() string {
	switch tier {
	case TierBuiltIn:
		return "built-in"
	case TierIgnoreFile:
		return "ignore-file"
	case TierConfig:
		return "config"
	case TierRestriction:
		return "restriction"
	default:
		return "none"
	}
}

func tierForOrigin(origin pattern.Origin) Tier {
	switch origin {
	case pattern.OriginBuiltIn:
		return TierBuiltIn
	case pattern.OriginIgnoreFile:
		return TierIgnoreFile
	case pattern.OriginConfig:
		return TierConfig
	default:
		return TierRestriction
	}
}

// Verdict is the answer of a single stage.
type Verdict struct {
	Excluded bool
	// Matched is true when the stage had an opinion about the path.
	Matched bool
	Tier    Tier
	Rule    *pattern.Rule
}

// Stage evaluates one tier of the filter pipeline.
type Stage interface {
	Evaluate(relativePath string, isDirectory bool) Verdict
	// Prunable reports whether every path below relativeDirectory is necessarily excluded.
	Prunable(relativeDirectory string) bool
}

const (
	builtInSource     = "built-in"
	restrictionFolder = "--folder"
	restrictionPull   = "--pr"
)

// builtInStage excludes the .git subtree, the tool's control files, and binary extensions.
type builtInStage struct{}

func (builtInStage) Evaluate(relativePath string, isDirectory bool) Verdict {
	for _, segment := range strings.Split(relativePath, "/") {
		if segment == utils.GitDirectoryName {
			return builtInVerdict(utils.GitDirectoryName, true)
		}
	}
	if isDirectory {
		return Verdict{}
	}
	baseName := path.Base(relativePath)
	if utils.IsControlFile(baseName) {
		return builtInVerdict(baseName, false)
	}
	if utils.HasBinaryExtension(baseName) {
		return builtInVerdict("*"+strings.ToLower(path.Ext(baseName)), false)
	}
	return Verdict{}
}

func (stage builtInStage) Prunable(relativeDirectory string) bool {
	return stage.Evaluate(relativeDirectory, true).Excluded
}

func builtInVerdict(rulePattern string, directoryOnly bool) Verdict {
	return Verdict{
		Excluded: true,
		Matched:  true,
		Tier:     TierBuiltIn,
		Rule: &pattern.Rule{
			Pattern:       rulePattern,
			DirectoryOnly: directoryOnly,
			Origin:        pattern.OriginBuiltIn,
			Source:        builtInSource,
		},
	}
}

// rulesStage evaluates ignore-file and config rules as one ordered scan.
type rulesStage struct {
	ruleSet *pattern.RuleSet
}

func (stage rulesStage) Evaluate(relativePath string, isDirectory bool) Verdict {
	decision := stage.ruleSet.Decide(relativePath, isDirectory)
	if !decision.Matched {
		return Verdict{}
	}
	return Verdict{
		Excluded: decision.Excluded,
		Matched:  true,
		Tier:     tierForOrigin(decision.Rule.Origin),
		Rule:     decision.Rule,
	}
}

func (stage rulesStage) Prunable(relativeDirectory string) bool {
	return stage.ruleSet.Excludes(relativeDirectory, true)
}

// folderStage excludes everything outside a single folder subtree.
type folderStage struct {
	folder string
}

func (stage folderStage) Evaluate(relativePath string, isDirectory bool) Verdict {
	if withinFolder(relativePath, stage.folder) {
		return Verdict{}
	}
	if isDirectory && withinFolder(stage.folder, relativePath) {
		return Verdict{}
	}
	return restrictionVerdict(stage.folder, restrictionFolder)
}

func (stage folderStage) Prunable(relativeDirectory string) bool {
	return stage.Evaluate(relativeDirectory, true).Excluded
}

// pullRequestStage excludes every path outside the changed-file set.
type pullRequestStage struct {
	changedFiles       map[string]struct{}
	changedDirectories map[string]struct{}
}

func newPullRequestStage(changedPaths []string) pullRequestStage {
	stage := pullRequestStage{
		changedFiles:       make(map[string]struct{}, len(changedPaths)),
		changedDirectories: make(map[string]struct{}),
	}
	for _, changedPath := range changedPaths {
		normalizedPath := pattern.NormalizePath(changedPath)
		if normalizedPath == "" {
			continue
		}
		stage.changedFiles[normalizedPath] = struct{}{}
		for directory := path.Dir(normalizedPath); directory != "."; directory = path.Dir(directory) {
			stage.changedDirectories[directory] = struct{}{}
		}
	}
	return stage
}

func (stage pullRequestStage) Evaluate(relativePath string, isDirectory bool) Verdict {
	lookup := stage.changedFiles
	if isDirectory {
		lookup = stage.changedDirectories
	}
	if _, changed := lookup[relativePath]; changed {
		return Verdict{}
	}
	return restrictionVerdict("changed files", restrictionPull)
}

func (stage pullRequestStage) Prunable(relativeDirectory string) bool {
	return stage.Evaluate(relativeDirectory, true).Excluded
}

func restrictionVerdict(description string, source string) Verdict {
	return Verdict{
		Excluded: true,
		Matched:  true,
		Tier:     TierRestriction,
		Rule: &pattern.Rule{
			Pattern: description,
			Origin:  pattern.OriginFolderRestriction,
			Source:  source,
		},
	}
}

func withinFolder(relativePath string, folder string) bool {
	return folder == "" || relativePath == folder || strings.HasPrefix(relativePath, folder+"/")
}
