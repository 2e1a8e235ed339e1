// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fabiomolinar/git2prompt/internal/acquire"
	"github.com/fabiomolinar/git2prompt/internal/config"
	"github.com/fabiomolinar/git2prompt/internal/github"
	"github.com/fabiomolinar/git2prompt/internal/output"
	"github.com/fabiomolinar/git2prompt/internal/pipeline"
	"github.com/fabiomolinar/git2prompt/internal/services/clipboard"
	"github.com/fabiomolinar/git2prompt/internal/tokenizer"
	"github.com/fabiomolinar/git2prompt/internal/utils"
)

const (
	localFlagName        = "local"
	noHeadersFlagName    = "no-headers"
	mergeFilesFlagName   = "merge-files"
	ignoreFileFlagName   = "ignore-file"
	configFlagName       = "config"
	splitFolderFlagName  = "split-folder"
	folderFlagName       = "folder"
	pullRequestFlagName  = "pr"
	exclusionFlagName    = "exclude"
	noGitignoreFlagName  = "no-gitignore"
	outputFlagName       = "output"
	workersFlagName      = "workers"
	tokensFlagName       = "tokens"
	modelFlagName        = "model"
	copyFlagName         = "copy"
	verboseFlagName      = "verbose"
	versionFlagName      = "version"
	forceFlagName        = "force"
	downloadDirectoryTag = "git2prompt-*"

	versionTemplate      = "git2prompt version: %s\n"
	rootUse              = "git2prompt [sources...]"
	rootShortDescription = "Turn repositories into Markdown prompts for AI tools"
	rootLongDescription  = `git2prompt downloads GitHub repositories, or reads a local directory, and writes
their files into Markdown documents ready to paste into an AI assistant.
Files are filtered by .git2promptignore, .gitignore, and configured patterns. Use --split-folder to
give folders their own document and --merge-files to combine several repositories.`
	rootUsageExample = `  # Process a repository
  git2prompt owner/repo

  # Process a local directory with the docs folder in its own document
  git2prompt --local . --split-folder docs

  # Only the files changed by pull request 42
  git2prompt owner/repo --pr 42`
	initUse              = "init"
	initShortDescription = "write a default " + utils.ConfigFileName + " into the working directory"

	localFlagDescription       = "treat the single source as a local directory"
	noHeadersFlagDescription   = "omit per-file header lines"
	mergeFilesFlagDescription  = "merge all repositories into one output per bucket"
	ignoreFileFlagDescription  = "ignore file to apply to every source"
	configFlagDescription      = "configuration file path"
	splitFolderFlagDescription = "folder that receives its own document (repeatable)"
	folderFlagDescription      = "process only this folder of each source"
	pullRequestFlagDescription = "process only the files changed by this pull request"
	exclusionFlagDescription   = "exclude path pattern (repeatable)"
	noGitignoreFlagDescription = "do not use .gitignore files"
	outputFlagDescription      = "output directory"
	workersFlagDescription     = "number of concurrent file workers"
	tokensFlagDescription      = "include token counts"
	modelFlagDescription       = "tokenizer model to use for token counting"
	copyFlagDescription        = "copy the document to the clipboard when exactly one is produced"
	verboseFlagDescription     = "log every inclusion and exclusion decision"
	versionFlagDescription     = "display application version"
	forceFlagDescription       = "overwrite an existing configuration file"

	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	downloadDirectoryFormat     = "create download directory: %w"
	tokenizerFormat             = "initialize tokenizer: %w"
	loggerFormat                = "initialize logger: %w"
	configurationWrittenFormat  = "Configuration written to %s\n"

	logMessageConfiguration = "configuration loaded"
	logMessageWarning       = "warning"
	logMessageWritten       = "document written"
	logMessageTree          = "included files"
	logMessageCopied        = "document copied to clipboard"
	logMessageCopySkipped   = "clipboard copy skipped: more than one document was produced"
	logMessageCopyFailed    = "clipboard copy failed"
	logMessageCleanupFailed = "failed to remove download directory"
	logFieldPath            = "path"
	logFieldTree            = "tree"
)

var (
	errNoSources            = errors.New("at least one source is required")
	errLocalNeedsOneSource  = errors.New("--local requires exactly one directory")
	errMergeWithLocal       = errors.New("--merge-files cannot be combined with --local")
	errPullRequestWithLocal = errors.New("--pr cannot be combined with --local")
	errInvalidPullRequest   = errors.New("--pr must be a positive number")
	errInvalidWorkerCount   = errors.New("--workers must be positive")
)

// application carries the collaborators of a run so tests can replace them.
type application struct {
	workingDirectory string
	stdout           io.Writer
	copier           clipboard.Copier
	newLogger        func(verbose bool) (*zap.Logger, error)
	getenv           func(string) string
	gitRunner        acquire.GitRunner
	newCounter       func(tokenizer.Config) (tokenizer.Counter, string, error)
}

// rootOptions stores the values of the root command flags.
type rootOptions struct {
	local           bool
	noHeaders       bool
	mergeFiles      bool
	ignoreFile      string
	configPath      string
	splitFolders    []string
	folder          string
	pullRequest     int
	excludePatterns []string
	noGitIgnore     bool
	outputDirectory string
	workers         int
	tokens          bool
	model           string
	copy            bool
	verbose         bool
	showVersion     bool
}

// Execute runs the git2prompt application.
func Execute(ctx context.Context) error {
	rootCommand := createRootCommand(newApplication())
	return rootCommand.ExecuteContext(ctx)
}

func newApplication() *application {
	return &application{
		stdout:     os.Stdout,
		copier:     clipboard.NewService(),
		newLogger:  utils.NewApplicationLogger,
		getenv:     os.Getenv,
		newCounter: tokenizer.NewCounter,
	}
}

// createRootCommand builds the root Cobra command.
func createRootCommand(app *application) *cobra.Command {
	options := &rootOptions{}

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Example:      rootUsageExample,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			if options.showVersion {
				_, printError := fmt.Fprintf(app.stdout, versionTemplate, utils.GetApplicationVersion())
				return printError
			}
			return app.run(command, options, arguments)
		},
	}
	flags := rootCommand.Flags()
	flags.BoolVarP(&options.local, localFlagName, "l", false, localFlagDescription)
	flags.BoolVarP(&options.noHeaders, noHeadersFlagName, "n", false, noHeadersFlagDescription)
	flags.BoolVarP(&options.mergeFiles, mergeFilesFlagName, "m", false, mergeFilesFlagDescription)
	flags.StringVar(&options.ignoreFile, ignoreFileFlagName, utils.IgnoreFileName, ignoreFileFlagDescription)
	flags.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	flags.StringArrayVar(&options.splitFolders, splitFolderFlagName, nil, splitFolderFlagDescription)
	flags.StringVarP(&options.folder, folderFlagName, "f", "", folderFlagDescription)
	flags.IntVar(&options.pullRequest, pullRequestFlagName, 0, pullRequestFlagDescription)
	flags.StringArrayVarP(&options.excludePatterns, exclusionFlagName, "e", nil, exclusionFlagDescription)
	flags.BoolVar(&options.noGitIgnore, noGitignoreFlagName, false, noGitignoreFlagDescription)
	flags.StringVarP(&options.outputDirectory, outputFlagName, "o", "", outputFlagDescription)
	flags.IntVar(&options.workers, workersFlagName, 0, workersFlagDescription)
	flags.BoolVar(&options.tokens, tokensFlagName, false, tokensFlagDescription)
	flags.StringVar(&options.model, modelFlagName, tokenizer.DefaultModel, modelFlagDescription)
	flags.BoolVar(&options.copy, copyFlagName, false, copyFlagDescription)
	flags.BoolVarP(&options.verbose, verboseFlagName, "v", false, verboseFlagDescription)
	flags.BoolVar(&options.showVersion, versionFlagName, false, versionFlagDescription)

	rootCommand.AddCommand(createInitCommand(app))
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

func createInitCommand(app *application) *cobra.Command {
	var force bool
	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			writtenPath, initError := config.InitializeConfiguration(config.InitOptions{
				Force:            force,
				WorkingDirectory: app.workingDirectory,
			})
			if initError != nil {
				return initError
			}
			_, printError := fmt.Fprintf(app.stdout, configurationWrittenFormat, writtenPath)
			return printError
		},
	}
	initCommand.Flags().BoolVar(&force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

func validateArguments(options *rootOptions, arguments []string) error {
	switch {
	case len(arguments) == 0:
		return errNoSources
	case options.local && options.mergeFiles:
		return errMergeWithLocal
	case options.local && options.pullRequest != 0:
		return errPullRequestWithLocal
	case options.local && len(arguments) != 1:
		return errLocalNeedsOneSource
	case options.pullRequest < 0:
		return errInvalidPullRequest
	case options.workers < 0:
		return errInvalidWorkerCount
	}
	return nil
}

// overridesFromFlags converts flags the user set explicitly into configuration overrides.
func overridesFromFlags(command *cobra.Command, options *rootOptions) config.Overrides {
	flags := command.Flags()
	overrides := config.Overrides{
		ExcludePatterns: options.excludePatterns,
		SplitFolders:    options.splitFolders,
		OutputDirectory: options.outputDirectory,
	}
	if flags.Changed(noHeadersFlagName) {
		overrides.NoHeaders = &options.noHeaders
	}
	if flags.Changed(mergeFilesFlagName) {
		overrides.MergeFiles = &options.mergeFiles
	}
	if flags.Changed(ignoreFileFlagName) {
		overrides.IgnoreFile = options.ignoreFile
	}
	if flags.Changed(noGitignoreFlagName) {
		useGitIgnore := !options.noGitIgnore
		overrides.UseGitIgnore = &useGitIgnore
	}
	if flags.Changed(workersFlagName) {
		overrides.Workers = &options.workers
	}
	if flags.Changed(tokensFlagName) {
		overrides.TokensEnabled = &options.tokens
	}
	if flags.Changed(modelFlagName) {
		overrides.TokenModel = options.model
	}
	return overrides
}

func (app *application) run(command *cobra.Command, options *rootOptions, arguments []string) error {
	if validationError := validateArguments(options, arguments); validationError != nil {
		return validationError
	}
	logger, loggerError := app.newLogger(options.verbose)
	if loggerError != nil {
		return fmt.Errorf(loggerFormat, loggerError)
	}

	workingDirectory := app.workingDirectory
	if workingDirectory == "" {
		currentDirectory, getwdError := os.Getwd()
		if getwdError != nil {
			return fmt.Errorf(workingDirectoryErrorFormat, getwdError)
		}
		workingDirectory = currentDirectory
	}

	loadOptions := config.LoadOptions{WorkingDirectory: workingDirectory, ExplicitFilePath: options.configPath}
	if options.local {
		loadOptions.SourceDirectory = resolvePath(workingDirectory, arguments[0])
	}
	configuration, configurationPath, loadError := config.LoadApplicationConfiguration(loadOptions)
	if loadError != nil {
		return loadError
	}
	if configurationPath != "" {
		logger.Info(logMessageConfiguration, zap.String(logFieldPath, configurationPath))
	}
	settings := configuration.Resolve(overridesFromFlags(command, options))
	if options.local && settings.MergeFiles {
		return errMergeWithLocal
	}

	downloadDirectory := ""
	if !options.local {
		createdDirectory, tempError := os.MkdirTemp("", downloadDirectoryTag)
		if tempError != nil {
			return fmt.Errorf(downloadDirectoryFormat, tempError)
		}
		downloadDirectory = createdDirectory
		defer func() {
			if removeError := os.RemoveAll(downloadDirectory); removeError != nil {
				logger.Warn(logMessageCleanupFailed, zap.String(logFieldPath, downloadDirectory), zap.Error(removeError))
			}
		}()
	}

	gitHubClient := github.NewClient(nil).WithAuthorizationToken(app.getenv(github.TokenEnvironmentVariable))
	acquirer := acquire.NewAcquirer(downloadDirectory, gitHubClient, acquire.WithLogger(logger), acquire.WithGitRunner(app.gitRunner))
	requests := make([]acquire.Request, 0, len(arguments))
	for _, argument := range arguments {
		reference := argument
		if options.local {
			reference = resolvePath(workingDirectory, argument)
		}
		requests = append(requests, acquire.Request{
			Reference:   reference,
			Local:       options.local,
			PullRequest: options.pullRequest,
			Folder:      options.folder,
		})
	}
	ctx := command.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sources, acquireError := acquirer.Acquire(ctx, requests)
	if acquireError != nil {
		return acquireError
	}

	runner := pipeline.NewRunner(pipeline.Options{
		NoHeaders:          settings.NoHeaders,
		Merge:              settings.MergeFiles,
		SplitFolders:       settings.SplitFolders,
		IgnoreFilePath:     resolvePath(workingDirectory, settings.IgnoreFile),
		IgnoreFileRequired: settings.IgnoreFileRequired,
		TreeIgnoreFileName: utils.IgnoreFileName,
		ConfigPatterns:     settings.IgnorePatterns,
		UseGitIgnore:       settings.UseGitIgnore,
		Workers:            settings.Workers,
		Logger:             logger,
	})
	result, pipelineError := runner.Run(ctx, sources)
	defer logWarnings(logger, result.Warning())
	if pipelineError != nil {
		return pipelineError
	}

	var counter tokenizer.Counter
	model := ""
	if settings.TokensEnabled {
		createdCounter, effectiveModel, counterError := app.newCounter(tokenizer.Config{Model: settings.TokenModel})
		if counterError != nil {
			return fmt.Errorf(tokenizerFormat, counterError)
		}
		counter = createdCounter
		model = effectiveModel
	}
	summary, writeError := output.NewWriter(resolvePath(workingDirectory, settings.OutputDirectory), counter, model).Write(result.Documents)
	if writeError != nil {
		return writeError
	}
	for _, written := range summary.Documents {
		logger.Info(logMessageWritten, zap.String(logFieldPath, written.Path))
		logger.Debug(logMessageTree, zap.String(logFieldTree, output.RenderTree(written)))
		if _, printError := fmt.Fprintln(app.stdout, output.FormatDocumentLine(written)); printError != nil {
			return printError
		}
	}
	if _, printError := fmt.Fprintln(app.stdout, output.FormatSummaryLine(summary)); printError != nil {
		return printError
	}

	if options.copy {
		app.copyDocument(logger, result.Documents)
	}
	return nil
}

func (app *application) copyDocument(logger *zap.Logger, documents []pipeline.RenderedDocument) {
	if len(documents) != 1 {
		logger.Warn(logMessageCopySkipped)
		return
	}
	if copyError := app.copier.Copy(documents[0].Text); copyError != nil {
		logger.Warn(logMessageCopyFailed, zap.Error(copyError))
		return
	}
	logger.Info(logMessageCopied, zap.String(logFieldPath, documents[0].FileName))
}

func logWarnings(logger *zap.Logger, warnings error) {
	for _, warning := range multierr.Errors(warnings) {
		logger.Warn(logMessageWarning, zap.Error(warning))
	}
}

func resolvePath(workingDirectory string, candidate string) string {
	if candidate == "" || filepath.IsAbs(candidate) {
		return candidate
	}
	return filepath.Join(workingDirectory, candidate)
}
