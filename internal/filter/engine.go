package filter

import (
	"errors"
	"fmt"

	"github.com/fabiomolinar/git2prompt/internal/pattern"
)

// ErrFolderRestrictionIgnored reports that a folder restriction lost to pull request scope.
var ErrFolderRestrictionIgnored = errors.New("folder restriction ignored because pull request scope is active")

const folderIgnoredFormat = "%w: %s"

// Configuration lists the inputs of every tier.
type Configuration struct {
	// IgnoreRules are evaluated first, in order.
	IgnoreRules []pattern.Rule
	// ConfigRules are appended after IgnoreRules and therefore override them.
	ConfigRules []pattern.Rule
	// Folder restricts processing to one subtree when not empty.
	Folder string
	// PullRequestScoped restricts processing to PullRequestPaths.
	PullRequestScoped bool
	PullRequestPaths  []string
}

// Decision is the inclusion verdict for one file.
type Decision struct {
	Included bool
	// Tier is the stage that excluded the file, or the tier of the last matching rule for
	// included files. TierNone when nothing matched.
	Tier Tier
	Rule *pattern.Rule
}

// Engine composes the tiers into one decision per path.
type Engine struct {
	stages []Stage
}

// NewEngine builds the stage pipeline. The returned errors are warnings: skipped rules and an
// ignored folder restriction.
func NewEngine(configuration Configuration) (*Engine, []error) {
	var warnings []error

	combinedRules := make([]pattern.Rule, 0, len(configuration.IgnoreRules)+len(configuration.ConfigRules))
	combinedRules = append(combinedRules, configuration.IgnoreRules...)
	combinedRules = append(combinedRules, configuration.ConfigRules...)
	ruleSet, compileWarnings := pattern.Compile(combinedRules)
	warnings = append(warnings, compileWarnings...)

	stages := []Stage{builtInStage{}, rulesStage{ruleSet: ruleSet}}

	folder := pattern.NormalizePath(configuration.Folder)
	switch {
	case configuration.PullRequestScoped:
		stages = append(stages, newPullRequestStage(configuration.PullRequestPaths))
		if folder != "" {
			warnings = append(warnings, fmt.Errorf(folderIgnoredFormat, ErrFolderRestrictionIgnored, folder))
		}
	case folder != "":
		stages = append(stages, folderStage{folder: folder})
	}

	return &Engine{stages: stages}, warnings
}

// Decide returns the verdict for a file path relative to the source root.
func (engine *Engine) Decide(relativePath string) Decision {
	normalizedPath := pattern.NormalizePath(relativePath)
	decision := Decision{Included: true}
	for _, stage := range engine.stages {
		verdict := stage.Evaluate(normalizedPath, false)
		if !verdict.Matched {
			continue
		}
		if verdict.Excluded {
			return Decision{Included: false, Tier: verdict.Tier, Rule: verdict.Rule}
		}
		decision.Tier = verdict.Tier
		decision.Rule = verdict.Rule
	}
	return decision
}

// PruneDirectory reports whether the directory can be skipped because every descendant is excluded.
func (engine *Engine) PruneDirectory(relativeDirectory string) bool {
	normalizedDirectory := pattern.NormalizePath(relativeDirectory)
	if normalizedDirectory == "" {
		return false
	}
	for _, stage := range engine.stages {
		if stage.Prunable(normalizedDirectory) {
			return true
		}
	}
	return false
}
