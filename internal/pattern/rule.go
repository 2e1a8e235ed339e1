// Package pattern compiles ordered gitignore-style rules into a single path decision.
package pattern

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidPattern reports a rule line that cannot be compiled.
var ErrInvalidPattern = errors.New("invalid pattern")

const (
	commentPrefix       = "#"
	negationPrefix      = "!"
	escapedComment      = `\#`
	escapedNegation     = `\!`
	pathSeparator       = "/"
	invalidRuleFormat   = "%s:%d: %w: %q"
	scanRulesFailFormat = "scan rules from %s: %w"
)

// Origin identifies the configuration source a rule came from.
type Origin int

const (
	// OriginBuiltIn marks rules the tool always applies.
	OriginBuiltIn Origin = iota
	// OriginIgnoreFile marks rules read from an ignore file.
	OriginIgnoreFile
	// OriginConfig marks rules supplied by the persisted configuration or command line.
	OriginConfig
	// OriginFolderRestriction marks rules synthesized from a folder or pull request restriction.
	OriginFolderRestriction
)

// String returns a short label for the origin.
func (origin Origin) String() string {
	switch origin {
	case OriginBuiltIn:
		return "built-in"
	case OriginIgnoreFile:
		return "ignore-file"
	case OriginConfig:
		return "config"
	case OriginFolderRestriction:
		return "restriction"
	default:
		return "unknown"
	}
}

// Rule is one parsed gitignore-style line.
type Rule struct {
	// Pattern is the glob body with negation, leading and trailing slashes removed.
	Pattern string
	// Negated re-includes matching paths.
	Negated bool
	// DirectoryOnly restricts the rule to directories (source line ended with "/").
	DirectoryOnly bool
	// Anchored ties the rule to its base directory (source line started with "/").
	Anchored bool
	// Base is the slash-separated directory the rule is scoped to; empty means the root.
	Base string
	Origin Origin
	// Source names the file or flag the rule came from.
	Source string
	// Line is the 1-based line number inside Source, zero when not applicable.
	Line int
}

// ParseOptions describes where parsed rules come from.
type ParseOptions struct {
	Origin Origin
	Base   string
	Source string
}

// String renders the rule back into gitignore syntax.
func (rule Rule) String() string {
	var builder strings.Builder
	if rule.Negated {
		builder.WriteString(negationPrefix)
	}
	if rule.Anchored {
		builder.WriteString(pathSeparator)
	}
	builder.WriteString(rule.Pattern)
	if rule.DirectoryOnly {
		builder.WriteString(pathSeparator)
	}
	return builder.String()
}

// Location returns "source:line" for diagnostics.
func (rule Rule) Location() string {
	if rule.Line == 0 {
		return rule.Source
	}
	return fmt.Sprintf("%s:%d", rule.Source, rule.Line)
}

// ParseLine parses one gitignore line. The boolean result is false for blank lines and comments.
func ParseLine(line string, options ParseOptions) (Rule, bool, error) {
	trimmedLine := trimTrailingSpaces(strings.TrimRight(line, "\r"))
	if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) {
		return Rule{}, false, nil
	}
	if strings.HasPrefix(trimmedLine, escapedComment) {
		trimmedLine = trimmedLine[1:]
	}

	rule := Rule{
		Origin: options.Origin,
		Base:   NormalizePath(options.Base),
		Source: options.Source,
	}
	switch {
	case strings.HasPrefix(trimmedLine, negationPrefix):
		rule.Negated = true
		trimmedLine = trimmedLine[1:]
	case strings.HasPrefix(trimmedLine, escapedNegation):
		trimmedLine = trimmedLine[1:]
	}

	trimmedLine = strings.ReplaceAll(trimmedLine, `\`+pathSeparator, pathSeparator)
	if strings.HasPrefix(trimmedLine, pathSeparator) {
		rule.Anchored = true
		trimmedLine = strings.TrimLeft(trimmedLine, pathSeparator)
	}
	if strings.HasSuffix(trimmedLine, pathSeparator) {
		rule.DirectoryOnly = true
		trimmedLine = strings.TrimRight(trimmedLine, pathSeparator)
	}
	if trimmedLine == "" {
		return Rule{}, true, fmt.Errorf("%w: empty after normalization", ErrInvalidPattern)
	}
	rule.Pattern = trimmedLine
	return rule, true, nil
}

// ParseRules parses every line of reader. Malformed lines are skipped and reported in the
// returned slice of errors; the final error is set only when reading itself failed.
func ParseRules(reader io.Reader, options ParseOptions) ([]Rule, []error, error) {
	var rules []Rule
	var skipped []error

	scanner := bufio.NewScanner(reader)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		rawLine := scanner.Text()
		rule, isRule, parseError := ParseLine(rawLine, options)
		if parseError != nil {
			skipped = append(skipped, fmt.Errorf(invalidRuleFormat, options.Source, lineNumber, parseError, rawLine))
			continue
		}
		if !isRule {
			continue
		}
		rule.Line = lineNumber
		if _, compileError := compileRule(rule); compileError != nil {
			skipped = append(skipped, fmt.Errorf(invalidRuleFormat, options.Source, lineNumber, compileError, rawLine))
			continue
		}
		rules = append(rules, rule)
	}
	if scanError := scanner.Err(); scanError != nil {
		return rules, skipped, fmt.Errorf(scanRulesFailFormat, options.Source, scanError)
	}
	return rules, skipped, nil
}

// ParsePatterns parses patterns supplied as a list, for example from configuration.
func ParsePatterns(patterns []string, options ParseOptions) ([]Rule, []error) {
	rules, skipped, _ := ParseRules(strings.NewReader(strings.Join(patterns, "\n")), options)
	return rules, skipped
}

// trimTrailingSpaces removes trailing blanks unless the last one is escaped with a backslash.
func trimTrailingSpaces(line string) string {
	for len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
		if len(line) >= 2 && line[len(line)-2] == '\\' {
			return line[:len(line)-2] + line[len(line)-1:]
		}
		line = line[:len(line)-1]
	}
	return line
}
