package filter_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fabiomolinar/git2prompt/internal/filter"
	"github.com/fabiomolinar/git2prompt/internal/pattern"
)

func parseRules(testingHandle *testing.T, origin pattern.Origin, patterns ...string) []pattern.Rule {
	testingHandle.Helper()
	rules, skipped := pattern.ParsePatterns(patterns, pattern.ParseOptions{Origin: origin, Source: origin.String()})
	if len(skipped) > 0 {
		testingHandle.Fatalf("unexpected skipped patterns: %v", skipped)
	}
	return rules
}

func TestEngineDecide(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		configuration  func(*testing.T) filter.Configuration
		path           string
		expectIncluded bool
		expectTier     filter.Tier
	}{
		{
			name:           "no_rules_includes",
			configuration:  func(*testing.T) filter.Configuration { return filter.Configuration{} },
			path:           "main.go",
			expectIncluded: true,
			expectTier:     filter.TierNone,
		},
		{
			name:           "git_directory_excluded",
			configuration:  func(*testing.T) filter.Configuration { return filter.Configuration{} },
			path:           ".git/config",
			expectIncluded: false,
			expectTier:     filter.TierBuiltIn,
		},
		{
			name:           "control_file_excluded",
			configuration:  func(*testing.T) filter.Configuration { return filter.Configuration{} },
			path:           "nested/.git2promptconfig",
			expectIncluded: false,
			expectTier:     filter.TierBuiltIn,
		},
		{
			name: "binary_extension_not_negatable",
			configuration: func(testingHandle *testing.T) filter.Configuration {
				return filter.Configuration{ConfigRules: parseRules(testingHandle, pattern.OriginConfig, "!logo.png")}
			},
			path:           "assets/logo.png",
			expectIncluded: false,
			expectTier:     filter.TierBuiltIn,
		},
		{
			name: "ignore_file_excludes",
			configuration: func(testingHandle *testing.T) filter.Configuration {
				return filter.Configuration{IgnoreRules: parseRules(testingHandle, pattern.OriginIgnoreFile, "*.log")}
			},
			path:           "trace.log",
			expectIncluded: false,
			expectTier:     filter.TierIgnoreFile,
		},
		{
			name: "config_overrides_ignore_file",
			configuration: func(testingHandle *testing.T) filter.Configuration {
				return filter.Configuration{
					IgnoreRules: parseRules(testingHandle, pattern.OriginIgnoreFile, "*.log"),
					ConfigRules: parseRules(testingHandle, pattern.OriginConfig, "!debug.log"),
				}
			},
			path:           "debug.log",
			expectIncluded: true,
			expectTier:     filter.TierConfig,
		},
		{
			name: "config_exclusion_applies",
			configuration: func(testingHandle *testing.T) filter.Configuration {
				return filter.Configuration{ConfigRules: parseRules(testingHandle, pattern.OriginConfig, "secrets/")}
			},
			path:           "secrets/key.txt",
			expectIncluded: false,
			expectTier:     filter.TierConfig,
		},
		{
			name: "folder_restriction_excludes_outside",
			configuration: func(*testing.T) filter.Configuration {
				return filter.Configuration{Folder: "src"}
			},
			path:           "README.md",
			expectIncluded: false,
			expectTier:     filter.TierRestriction,
		},
		{
			name: "folder_restriction_sibling_prefix",
			configuration: func(*testing.T) filter.Configuration {
				return filter.Configuration{Folder: "src"}
			},
			path:           "src2/main.go",
			expectIncluded: false,
			expectTier:     filter.TierRestriction,
		},
		{
			name: "folder_restriction_keeps_tiers_inside",
			configuration: func(testingHandle *testing.T) filter.Configuration {
				return filter.Configuration{Folder: "src/", IgnoreRules: parseRules(testingHandle, pattern.OriginIgnoreFile, "*_test.go")}
			},
			path:           "src/main_test.go",
			expectIncluded: false,
			expectTier:     filter.TierIgnoreFile,
		},
		{
			name: "folder_restriction_cannot_be_negated",
			configuration: func(testingHandle *testing.T) filter.Configuration {
				return filter.Configuration{Folder: "src", ConfigRules: parseRules(testingHandle, pattern.OriginConfig, "!README.md")}
			},
			path:           "README.md",
			expectIncluded: false,
			expectTier:     filter.TierRestriction,
		},
		{
			name: "pull_request_scope_includes_changed",
			configuration: func(*testing.T) filter.Configuration {
				return filter.Configuration{PullRequestScoped: true, PullRequestPaths: []string{"src/a.go"}}
			},
			path:           "src/a.go",
			expectIncluded: true,
			expectTier:     filter.TierNone,
		},
		{
			name: "pull_request_scope_excludes_unchanged",
			configuration: func(*testing.T) filter.Configuration {
				return filter.Configuration{PullRequestScoped: true, PullRequestPaths: []string{"src/a.go"}}
			},
			path:           "src/b.go",
			expectIncluded: false,
			expectTier:     filter.TierRestriction,
		},
		{
			name: "pull_request_scope_wins_over_folder",
			configuration: func(*testing.T) filter.Configuration {
				return filter.Configuration{Folder: "docs", PullRequestScoped: true, PullRequestPaths: []string{"src/a.go"}}
			},
			path:           "src/a.go",
			expectIncluded: true,
			expectTier:     filter.TierNone,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(testingHandle *testing.T) {
			testingHandle.Parallel()
			engine, _ := filter.NewEngine(testCase.configuration(testingHandle))
			decision := engine.Decide(testCase.path)
			if decision.Included != testCase.expectIncluded {
				testingHandle.Fatalf("Decide(%q) included=%v, want %v", testCase.path, decision.Included, testCase.expectIncluded)
			}
			if decision.Tier != testCase.expectTier {
				testingHandle.Fatalf("Decide(%q) tier=%s, want %s", testCase.path, decision.Tier, testCase.expectTier)
			}
		})
	}
}

func TestNewEngineWarnsWhenFolderIgnored(t *testing.T) {
	t.Parallel()

	_, warnings := filter.NewEngine(filter.Configuration{Folder: "docs", PullRequestScoped: true})
	if len(warnings) != 1 || !errors.Is(warnings[0], filter.ErrFolderRestrictionIgnored) {
		t.Fatalf("expected folder restriction warning, got %v", warnings)
	}
}

func TestEnginePruneDirectory(t *testing.T) {
	t.Parallel()

	ignoreRules := parseRules(t, pattern.OriginIgnoreFile, "node_modules/", "build/*", "!build/keep.txt")
	testCases := []struct {
		name          string
		configuration filter.Configuration
		directory     string
		expectPrune   bool
	}{
		{name: "git_directory", configuration: filter.Configuration{}, directory: ".git", expectPrune: true},
		{name: "root_never_pruned", configuration: filter.Configuration{}, directory: ".", expectPrune: false},
		{name: "excluded_directory", configuration: filter.Configuration{IgnoreRules: ignoreRules}, directory: "web/node_modules", expectPrune: true},
		{name: "partially_excluded_directory", configuration: filter.Configuration{IgnoreRules: ignoreRules}, directory: "build", expectPrune: false},
		{name: "folder_ancestor_kept", configuration: filter.Configuration{Folder: "src/app"}, directory: "src", expectPrune: false},
		{name: "folder_sibling_pruned", configuration: filter.Configuration{Folder: "src/app"}, directory: "docs", expectPrune: true},
		{name: "pull_request_directory_kept", configuration: filter.Configuration{PullRequestScoped: true, PullRequestPaths: []string{"a/b/c.go"}}, directory: "a/b", expectPrune: false},
		{name: "pull_request_directory_pruned", configuration: filter.Configuration{PullRequestScoped: true, PullRequestPaths: []string{"a/b/c.go"}}, directory: "a/x", expectPrune: true},
	}
	for _, testCase := range testCases {
		engine, _ := filter.NewEngine(testCase.configuration)
		if actual := engine.PruneDirectory(testCase.directory); actual != testCase.expectPrune {
			t.Fatalf("%s: PruneDirectory(%q)=%v, want %v", testCase.name, testCase.directory, actual, testCase.expectPrune)
		}
	}
}

func TestLoadIgnoreFile(t *testing.T) {
	temporaryRoot := t.TempDir()

	missingRules, missingWarnings := filter.LoadIgnoreFile(filepath.Join(temporaryRoot, "absent"), pattern.ParseOptions{})
	if missingRules != nil || missingWarnings != nil {
		t.Fatalf("missing file should yield nothing, got %v %v", missingRules, missingWarnings)
	}

	requiredRules, requiredWarnings := filter.LoadRequiredIgnoreFile(filepath.Join(temporaryRoot, "typo-ignore"), pattern.ParseOptions{})
	if len(requiredRules) != 0 || len(requiredWarnings) != 1 || !errors.Is(requiredWarnings[0], filter.ErrIgnoreFileMissing) {
		t.Fatalf("missing required file should yield one warning, got %v %v", requiredRules, requiredWarnings)
	}

	directoryAsFile := filepath.Join(temporaryRoot, "directory")
	if mkdirError := os.Mkdir(directoryAsFile, 0o755); mkdirError != nil {
		t.Fatalf("mkdir: %v", mkdirError)
	}
	unreadableRules, unreadableWarnings := filter.LoadIgnoreFile(directoryAsFile, pattern.ParseOptions{})
	if len(unreadableRules) != 0 || len(unreadableWarnings) != 1 {
		t.Fatalf("unreadable file should yield one warning, got %v %v", unreadableRules, unreadableWarnings)
	}

	ignorePath := filepath.Join(temporaryRoot, ".git2promptignore")
	if writeError := os.WriteFile(ignorePath, []byte("# comment\n*.tmp\n[broken\n"), 0o600); writeError != nil {
		t.Fatalf("write: %v", writeError)
	}
	rules, warnings := filter.LoadIgnoreFile(ignorePath, pattern.ParseOptions{Origin: pattern.OriginIgnoreFile})
	if len(rules) != 1 || rules[0].Pattern != "*.tmp" || rules[0].Source != ignorePath {
		t.Fatalf("unexpected rules %+v", rules)
	}
	if requiredRules, _ := filter.LoadRequiredIgnoreFile(ignorePath, pattern.ParseOptions{Origin: pattern.OriginIgnoreFile}); len(requiredRules) != 1 {
		t.Fatalf("required file rules %+v", requiredRules)
	}
	if len(warnings) != 1 || !errors.Is(warnings[0], pattern.ErrInvalidPattern) {
		t.Fatalf("expected one invalid pattern warning, got %v", warnings)
	}
}

func TestCollectTreeIgnoreRules(t *testing.T) {
	temporaryRoot := t.TempDir()
	files := map[string]string{
		".gitignore":                   "*.out\nvendor/\n",
		".git2promptignore":            "!keep.out\n",
		"pkg/.gitignore":               "/local.txt\n",
		"vendor/.gitignore":            "should-not-load\n",
		".git/info/.gitignore":         "ignored\n",
		"pkg/nested/.git2promptignore": "*.md\n",
	}
	for relativePath, content := range files {
		absolutePath := filepath.Join(temporaryRoot, filepath.FromSlash(relativePath))
		if mkdirError := os.MkdirAll(filepath.Dir(absolutePath), 0o755); mkdirError != nil {
			t.Fatalf("mkdir: %v", mkdirError)
		}
		if writeError := os.WriteFile(absolutePath, []byte(content), 0o600); writeError != nil {
			t.Fatalf("write: %v", writeError)
		}
	}

	rules, warnings := filter.CollectTreeIgnoreRules(temporaryRoot, filter.TreeIgnoreOptions{
		IncludeGitIgnore: true,
		IgnoreFileName:   ".git2promptignore",
	})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	expectedSources := []string{".gitignore", ".gitignore", ".git2promptignore", "pkg/.gitignore", "pkg/nested/.git2promptignore"}
	if len(rules) != len(expectedSources) {
		t.Fatalf("expected %d rules, got %d: %+v", len(expectedSources), len(rules), rules)
	}
	for index, rule := range rules {
		if rule.Source != expectedSources[index] {
			t.Fatalf("rule %d source %q, want %q", index, rule.Source, expectedSources[index])
		}
	}

	engine, _ := filter.NewEngine(filter.Configuration{IgnoreRules: rules})
	expectations := map[string]bool{
		"a.out":              false,
		"keep.out":           true,
		"pkg/local.txt":      false,
		"local.txt":          true,
		"pkg/nested/doc.md":  false,
		"README.md":          true,
		"vendor/lib/code.go": false,
	}
	for relativePath, expectIncluded := range expectations {
		if decision := engine.Decide(relativePath); decision.Included != expectIncluded {
			t.Fatalf("Decide(%q) included=%v, want %v", relativePath, decision.Included, expectIncluded)
		}
	}

	gitOnly, _ := filter.CollectTreeIgnoreRules(temporaryRoot, filter.TreeIgnoreOptions{IgnoreFileName: ".git2promptignore"})
	if len(gitOnly) != 2 {
		t.Fatalf("expected 2 rules without .gitignore, got %d", len(gitOnly))
	}
}

func TestCollectTreeIgnoreRulesEntersReopenedDirectories(t *testing.T) {
	temporaryRoot := t.TempDir()
	for relativePath, content := range map[string]string{
		".gitignore":       "build/\n",
		"build/.gitignore": "*.tmp\n",
	} {
		absolutePath := filepath.Join(temporaryRoot, filepath.FromSlash(relativePath))
		if mkdirError := os.MkdirAll(filepath.Dir(absolutePath), 0o755); mkdirError != nil {
			t.Fatalf("mkdir: %v", mkdirError)
		}
		if writeError := os.WriteFile(absolutePath, []byte(content), 0o600); writeError != nil {
			t.Fatalf("write: %v", writeError)
		}
	}
	overrides, _ := pattern.ParsePatterns([]string{"!build/"}, pattern.ParseOptions{Origin: pattern.OriginConfig, Source: "ignore_patterns"})

	withoutOverrides, _ := filter.CollectTreeIgnoreRules(temporaryRoot, filter.TreeIgnoreOptions{IncludeGitIgnore: true})
	if len(withoutOverrides) != 1 {
		t.Fatalf("excluded directory must not be scanned, got %+v", withoutOverrides)
	}

	rules, warnings := filter.CollectTreeIgnoreRules(temporaryRoot, filter.TreeIgnoreOptions{IncludeGitIgnore: true, OverrideRules: overrides})
	if len(warnings) != 0 || len(rules) != 2 || rules[1].Source != "build/.gitignore" {
		t.Fatalf("unexpected rules %+v, warnings %v", rules, warnings)
	}
	engine, _ := filter.NewEngine(filter.Configuration{IgnoreRules: rules, ConfigRules: overrides})
	if engine.Decide("build/junk.tmp").Included || !engine.Decide("build/app.go").Included {
		t.Fatalf("nested ignore file of a reopened directory must apply")
	}
}
