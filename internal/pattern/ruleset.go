package pattern

import (
	"path"
	"strings"
)

const (
	currentDirectory = "."
	windowsSeparator = `\`
)

// Decision is the outcome of evaluating a path against a RuleSet.
type Decision struct {
	// Excluded is true when the last matching rule excludes the path or one of its ancestors.
	Excluded bool
	// Matched is true when any rule matched the path or an ancestor.
	Matched bool
	// Rule is the deciding rule, nil when nothing matched.
	Rule *Rule
	// Ancestor is set when an excluded ancestor directory decided the outcome.
	Ancestor string
}

// RuleSet holds compiled rules in evaluation order.
type RuleSet struct {
	compiledRules []compiledRule
}

// Compile compiles rules in order. Rules that fail to compile are skipped and reported.
func Compile(rules []Rule) (*RuleSet, []error) {
	ruleSet := &RuleSet{compiledRules: make([]compiledRule, 0, len(rules))}
	var skipped []error
	for _, rule := range rules {
		compiled, compileError := compileRule(rule)
		if compileError != nil {
			skipped = append(skipped, compileError)
			continue
		}
		ruleSet.compiledRules = append(ruleSet.compiledRules, compiled)
	}
	return ruleSet, skipped
}

// Len returns the number of compiled rules.
func (ruleSet *RuleSet) Len() int {
	if ruleSet == nil {
		return 0
	}
	return len(ruleSet.compiledRules)
}

// Decide evaluates a relative path. Ancestor directories are evaluated first and the first
// excluded ancestor decides; otherwise the last rule matching the path itself wins.
func (ruleSet *RuleSet) Decide(relativePath string, isDirectory bool) Decision {
	normalizedPath := NormalizePath(relativePath)
	if ruleSet.Len() == 0 || normalizedPath == "" {
		return Decision{}
	}

	segments := strings.Split(normalizedPath, pathSeparator)
	for segmentIndex := 1; segmentIndex < len(segments); segmentIndex++ {
		ancestor := strings.Join(segments[:segmentIndex], pathSeparator)
		ancestorDecision := ruleSet.lastMatch(ancestor, true)
		if ancestorDecision.Excluded {
			ancestorDecision.Ancestor = ancestor
			return ancestorDecision
		}
	}
	return ruleSet.lastMatch(normalizedPath, isDirectory)
}

// Excludes is a convenience wrapper around Decide.
func (ruleSet *RuleSet) Excludes(relativePath string, isDirectory bool) bool {
	return ruleSet.Decide(relativePath, isDirectory).Excluded
}

func (ruleSet *RuleSet) lastMatch(normalizedPath string, isDirectory bool) Decision {
	decision := Decision{}
	for index := range ruleSet.compiledRules {
		compiled := &ruleSet.compiledRules[index]
		if !compiled.matches(normalizedPath, isDirectory) {
			continue
		}
		decidingRule := compiled.rule
		decision = Decision{
			Excluded: !decidingRule.Negated,
			Matched:  true,
			Rule:     &decidingRule,
		}
	}
	return decision
}

// NormalizePath converts a path into the slash-separated relative form rules are matched against.
func NormalizePath(candidatePath string) string {
	normalized := strings.ReplaceAll(candidatePath, windowsSeparator, pathSeparator)
	normalized = strings.TrimPrefix(normalized, "./")
	normalized = strings.TrimLeft(normalized, pathSeparator)
	if normalized == "" {
		return ""
	}
	normalized = path.Clean(normalized)
	if normalized == currentDirectory {
		return ""
	}
	return normalized
}
