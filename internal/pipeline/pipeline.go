// Package pipeline runs filtering, transformation, routing, and assembly over acquired sources.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fabiomolinar/git2prompt/internal/acquire"
	"github.com/fabiomolinar/git2prompt/internal/document"
	"github.com/fabiomolinar/git2prompt/internal/filter"
	"github.com/fabiomolinar/git2prompt/internal/pattern"
	"github.com/fabiomolinar/git2prompt/internal/routing"
	"github.com/fabiomolinar/git2prompt/internal/transform"
	"github.com/fabiomolinar/git2prompt/internal/types"
)

// ErrNothingToInclude reports a run in which every candidate was excluded.
var ErrNothingToInclude = errors.New("no files remained after filtering")

// ErrBinaryContent marks warnings about included files that look binary.
var ErrBinaryContent = errors.New("content looks binary")

const (
	configPatternSource   = "ignore_patterns"
	readFailedFormat      = "read %s/%s: %w"
	binaryContentFormat   = "%w: %s/%s"
	walkFailedFormat      = "walk %s: %w"
	sourceFailedFormat    = "process %s: %w"
	routeFailedFormat     = "route %s/%s: %w"
	logFieldPath          = "path"
	logFieldRepository    = "repository"
	logFieldDocument      = "document"
	logFieldTier          = "tier"
	logFieldRule          = "rule"
	logFieldBuckets       = "split_folders"
	logFieldMerge         = "merge"
	logMessageIncluded    = "included"
	logMessageExcluded    = "excluded"
	logMessageProcessing  = "processing source"
	logMessageSourceTotal = "source processed"
	logMessageRouting     = "routing table"
)

// Options configure a run.
type Options struct {
	NoHeaders    bool
	Merge        bool
	SplitFolders []string
	// IgnoreFilePath is the ignore file resolved from the working directory or --ignore-file.
	// It may not exist unless IgnoreFileRequired is set.
	IgnoreFilePath string
	// IgnoreFileRequired turns a missing IgnoreFilePath into a warning.
	IgnoreFileRequired bool
	// TreeIgnoreFileName is the tool ignore file name honored inside each source tree.
	TreeIgnoreFileName string
	// ConfigPatterns are appended after ignore-file rules.
	ConfigPatterns []string
	UseGitIgnore   bool
	Workers        int
	Logger         *zap.Logger
}

// RenderedDocument is one finished output document.
type RenderedDocument struct {
	Key      routing.Key
	FileName string
	Title    string
	Text     string
	// Paths lists the included entries; merge mode prefixes them with the repository name.
	Paths []string
}

// Result is the outcome of a run.
type Result struct {
	Documents []RenderedDocument
	Warnings  []error
}

// Warning combines the accumulated warnings into one error, nil when there are none.
func (result Result) Warning() error {
	return multierr.Combine(result.Warnings...)
}

type fileResult struct {
	candidate *types.FileCandidate
	decision  filter.Decision
	content   transform.Content
	readError error
}

// Runner processes sources into documents.
type Runner struct {
	options        Options
	logger         *zap.Logger
	workers        int
	table          *routing.Table
	configRules    []pattern.Rule
	configWarnings []error
}

// NewRunner prepares the routing table and config-tier rules shared by every source.
func NewRunner(options Options) *Runner {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := options.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	configRules, configWarnings := pattern.ParsePatterns(options.ConfigPatterns, pattern.ParseOptions{
		Origin: pattern.OriginConfig,
		Source: configPatternSource,
	})
	table := routing.NewTable(options.SplitFolders, options.Merge)
	logger.Debug(logMessageRouting, zap.Strings(logFieldBuckets, table.Buckets()), zap.Bool(logFieldMerge, table.Merge()))
	return &Runner{
		options:        options,
		logger:         logger,
		workers:        workers,
		table:          table,
		configRules:    configRules,
		configWarnings: configWarnings,
	}
}

// Run processes sources in order. Cancellation stops scheduling new files; files already
// scheduled finish before Run returns the context error.
func (runner *Runner) Run(ctx context.Context, sources []acquire.Source) (Result, error) {
	collection := document.NewCollection(document.Options{NoHeaders: runner.options.NoHeaders, Merge: runner.options.Merge})
	warnings := append([]error(nil), runner.configWarnings...)
	includedTotal := 0

	for _, source := range sources {
		runner.logger.Info(logMessageProcessing, zap.String(logFieldRepository, source.Name))
		included, sourceWarnings, sourceError := runner.processSource(ctx, source, collection)
		warnings = append(warnings, sourceWarnings...)
		if sourceError != nil {
			return Result{Warnings: warnings}, fmt.Errorf(sourceFailedFormat, source.Name, sourceError)
		}
		runner.logger.Info(logMessageSourceTotal, zap.String(logFieldRepository, source.Name), zap.Int("files", included))
		includedTotal += included
	}

	result := Result{Warnings: warnings}
	if includedTotal == 0 {
		return result, ErrNothingToInclude
	}
	for _, built := range collection.Documents() {
		entries := built.Entries()
		paths := make([]string, 0, len(entries))
		for _, entry := range entries {
			entryPath := entry.Path
			if runner.options.Merge {
				entryPath = entry.Repository + "/" + entry.Path
			}
			paths = append(paths, entryPath)
		}
		result.Documents = append(result.Documents, RenderedDocument{
			Key:      built.Key(),
			FileName: built.FileName(),
			Title:    built.Title(),
			Text:     built.Render(),
			Paths:    paths,
		})
	}
	return result, nil
}

// buildEngine assembles the filter tiers for one source.
func (runner *Runner) buildEngine(source acquire.Source) (*filter.Engine, []error) {
	var warnings []error
	var ignoreRules []pattern.Rule

	treeRootIgnoreFile := ""
	if runner.options.TreeIgnoreFileName != "" {
		treeRootIgnoreFile = filepath.Join(source.Root, runner.options.TreeIgnoreFileName)
	}
	if runner.options.IgnoreFilePath != "" && !samePath(runner.options.IgnoreFilePath, treeRootIgnoreFile) {
		loadIgnoreFile := filter.LoadIgnoreFile
		if runner.options.IgnoreFileRequired {
			loadIgnoreFile = filter.LoadRequiredIgnoreFile
		}
		rules, loadWarnings := loadIgnoreFile(runner.options.IgnoreFilePath, pattern.ParseOptions{Origin: pattern.OriginIgnoreFile})
		ignoreRules = append(ignoreRules, rules...)
		warnings = append(warnings, loadWarnings...)
	}
	treeRules, treeWarnings := filter.CollectTreeIgnoreRules(source.Root, filter.TreeIgnoreOptions{
		IncludeGitIgnore: runner.options.UseGitIgnore,
		IgnoreFileName:   runner.options.TreeIgnoreFileName,
		OverrideRules:    runner.configRules,
	})
	ignoreRules = append(ignoreRules, treeRules...)
	warnings = append(warnings, treeWarnings...)

	engine, engineWarnings := filter.NewEngine(filter.Configuration{
		IgnoreRules:       ignoreRules,
		ConfigRules:       runner.configRules,
		Folder:            source.Folder,
		PullRequestScoped: source.PullRequestScoped,
		PullRequestPaths:  source.PullRequestPaths,
	})
	return engine, append(warnings, engineWarnings...)
}

// processSource streams one source through a bounded worker pool. Results land in per-file
// slots queued in discovery order and a single consumer drains them in that order.
func (runner *Runner) processSource(ctx context.Context, source acquire.Source, collection *document.Collection) (int, []error, error) {
	engine, warnings := runner.buildEngine(source)
	included := 0

	group, streamCtx := errgroup.WithContext(ctx)
	pending := make(chan chan fileResult, runner.workers)
	var walkWarnings []error

	group.Go(func() error {
		defer close(pending)
		var workers errgroup.Group
		workers.SetLimit(runner.workers)
		defer workers.Wait()

		walkOptions := acquire.WalkOptions{
			Prune: engine.PruneDirectory,
			OnError: func(entryPath string, walkError error) {
				walkWarnings = append(walkWarnings, fmt.Errorf(walkFailedFormat, entryPath, walkError))
			},
		}
		for relativePath, absolutePath := range acquire.Walk(source.Root, walkOptions) {
			if streamCtx.Err() != nil {
				return streamCtx.Err()
			}
			candidate := types.NewFileCandidate(relativePath, absolutePath)
			slot := make(chan fileResult, 1)
			select {
			case pending <- slot:
			case <-streamCtx.Done():
				return streamCtx.Err()
			}
			workers.Go(func() error {
				slot <- runner.evaluate(engine, candidate)
				return nil
			})
		}
		return nil
	})

	var consumerWarnings []error
	group.Go(func() error {
		for slot := range pending {
			var result fileResult
			select {
			case result = <-slot:
			case <-streamCtx.Done():
				return streamCtx.Err()
			}
			isIncluded, consumeWarning, consumeError := runner.consume(source, result, collection)
			if consumeWarning != nil {
				consumerWarnings = append(consumerWarnings, consumeWarning)
			}
			if consumeError != nil {
				return consumeError
			}
			if isIncluded {
				included++
			}
		}
		return nil
	})

	waitError := group.Wait()
	warnings = append(warnings, walkWarnings...)
	warnings = append(warnings, consumerWarnings...)
	return included, warnings, waitError
}

func (runner *Runner) evaluate(engine *filter.Engine, candidate *types.FileCandidate) fileResult {
	result := fileResult{candidate: candidate, decision: engine.Decide(candidate.Path())}
	if !result.decision.Included {
		return result
	}
	data, readError := candidate.Load()
	if readError != nil {
		result.readError = readError
		return result
	}
	result.content = transform.Transform(candidate.BaseName(), candidate.Extension(), data)
	return result
}

func (runner *Runner) consume(source acquire.Source, result fileResult, collection *document.Collection) (bool, error, error) {
	relativePath := result.candidate.Path()
	if !result.decision.Included {
		fields := []zap.Field{zap.String(logFieldPath, relativePath), zap.Stringer(logFieldTier, result.decision.Tier)}
		if result.decision.Rule != nil {
			fields = append(fields, zap.String(logFieldRule, result.decision.Rule.String()))
		}
		runner.logger.Debug(logMessageExcluded, fields...)
		return false, nil, nil
	}
	if result.readError != nil {
		return false, fmt.Errorf(readFailedFormat, source.Name, relativePath, result.readError), nil
	}

	var warning error
	if result.content.Binary {
		warning = fmt.Errorf(binaryContentFormat, ErrBinaryContent, source.Name, relativePath)
	}
	key := runner.table.Route(source.Name, relativePath)
	appendError := collection.Append(key, document.Entry{
		Repository: source.Name,
		Path:       relativePath,
		Content:    result.content,
	})
	if appendError != nil {
		return false, warning, fmt.Errorf(routeFailedFormat, source.Name, relativePath, appendError)
	}
	runner.logger.Debug(logMessageIncluded, zap.String(logFieldPath, relativePath), zap.Stringer(logFieldDocument, key))
	return true, warning, nil
}

func samePath(first string, second string) bool {
	if first == "" || second == "" {
		return false
	}
	firstAbsolute, firstError := filepath.Abs(first)
	secondAbsolute, secondError := filepath.Abs(second)
	return firstError == nil && secondError == nil && firstAbsolute == secondAbsolute
}
