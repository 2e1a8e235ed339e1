package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fabiomolinar/git2prompt/internal/pattern"
	"github.com/fabiomolinar/git2prompt/internal/utils"
)

// ErrFolderNotFound reports a --folder restriction that does not exist inside the source.
var ErrFolderNotFound = errors.New("folder not found in source")

// ErrNoPullRequestProvider reports a pull request request without a file-list provider.
var ErrNoPullRequestProvider = errors.New("no pull request provider configured")

// ErrLocalSourceNotDirectory reports a --local argument that is not a directory.
var ErrLocalSourceNotDirectory = errors.New("local source is not a directory")

const (
	acquireSourceFailedFormat  = "acquire %s: %w"
	folderNotFoundFormat       = "%w: %s"
	localSourceFormat          = "%w: %s"
	createDownloadDirFormat    = "create download directory: %w"
	listPullRequestFilesFormat = "list files of pull request #%d: %w"
	pullRequestReferenceFormat = "pull/%d/head:%s"
	pullRequestBranchFormat    = "git2prompt-pr-%d"
	remoteName                 = "origin"
	shallowDepthArgument       = "--depth=1"
	downloadDirectoryMode      = 0o755
)

// PullRequestLister returns the paths changed by a pull request.
type PullRequestLister interface {
	ListPullRequestFiles(ctx context.Context, owner string, repository string, number int) ([]string, error)
}

// GitRunner executes git inside a directory.
type GitRunner func(ctx context.Context, workingDirectory string, arguments ...string) (string, error)

// Request describes one source to acquire.
type Request struct {
	// Reference is a repository reference, or a directory when Local is set.
	Reference   string
	Local       bool
	PullRequest int
	Folder      string
}

// Source is an acquired tree ready for processing.
type Source struct {
	Name              string
	Root              string
	Folder            string
	PullRequestScoped bool
	PullRequestPaths  []string
}

// Acquirer clones repositories and resolves local directories.
type Acquirer struct {
	downloadDirectory string
	pullRequests      PullRequestLister
	runGit            GitRunner
	logger            *zap.Logger
}

// Option customizes an Acquirer.
type Option func(*Acquirer)

// WithGitRunner replaces the git executor.
func WithGitRunner(runner GitRunner) Option {
	return func(acquirer *Acquirer) {
		if runner != nil {
			acquirer.runGit = runner
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(acquirer *Acquirer) {
		if logger != nil {
			acquirer.logger = logger
		}
	}
}

// NewAcquirer returns an Acquirer that clones into downloadDirectory.
func NewAcquirer(downloadDirectory string, pullRequests PullRequestLister, options ...Option) *Acquirer {
	acquirer := &Acquirer{
		downloadDirectory: downloadDirectory,
		pullRequests:      pullRequests,
		runGit:            utils.RunGit,
		logger:            zap.NewNop(),
	}
	for _, option := range options {
		option(acquirer)
	}
	return acquirer
}

// Acquire resolves every request concurrently. Sources are returned in request order and the
// first failure aborts the remaining work.
func (acquirer *Acquirer) Acquire(ctx context.Context, requests []Request) ([]Source, error) {
	sources := make([]Source, len(requests))
	group, groupContext := errgroup.WithContext(ctx)
	for requestIndex, request := range requests {
		group.Go(func() error {
			source, acquireError := acquirer.acquireOne(groupContext, requestIndex, request)
			if acquireError != nil {
				return fmt.Errorf(acquireSourceFailedFormat, request.Reference, acquireError)
			}
			sources[requestIndex] = source
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}
	return sources, nil
}

func (acquirer *Acquirer) acquireOne(ctx context.Context, requestIndex int, request Request) (Source, error) {
	var source Source
	var sourceError error
	if request.Local {
		source, sourceError = resolveLocal(request.Reference)
	} else {
		source, sourceError = acquirer.cloneRemote(ctx, requestIndex, request)
	}
	if sourceError != nil {
		return Source{}, sourceError
	}

	if request.Folder == "" {
		return source, nil
	}
	folder := pattern.NormalizePath(request.Folder)
	// A pull request scope replaces the folder restriction; the folder is carried along only so
	// the filter can report it as ignored.
	if !source.PullRequestScoped {
		folderInfo, statError := os.Stat(filepath.Join(source.Root, filepath.FromSlash(folder)))
		if statError != nil || !folderInfo.IsDir() {
			return Source{}, fmt.Errorf(folderNotFoundFormat, ErrFolderNotFound, request.Folder)
		}
	}
	source.Folder = folder
	return source, nil
}

func resolveLocal(reference string) (Source, error) {
	absolutePath, absoluteError := filepath.Abs(reference)
	if absoluteError != nil {
		return Source{}, absoluteError
	}
	directoryInfo, statError := os.Stat(absolutePath)
	if statError != nil {
		return Source{}, statError
	}
	if !directoryInfo.IsDir() {
		return Source{}, fmt.Errorf(localSourceFormat, ErrLocalSourceNotDirectory, reference)
	}
	return Source{Name: filepath.Base(absolutePath), Root: absolutePath}, nil
}

func (acquirer *Acquirer) cloneRemote(ctx context.Context, requestIndex int, request Request) (Source, error) {
	repository, parseError := ParseRepository(request.Reference)
	if parseError != nil {
		return Source{}, parseError
	}

	parentDirectory := filepath.Join(acquirer.downloadDirectory, strconv.Itoa(requestIndex))
	if mkdirError := os.MkdirAll(parentDirectory, downloadDirectoryMode); mkdirError != nil {
		return Source{}, fmt.Errorf(createDownloadDirFormat, mkdirError)
	}
	destination := filepath.Join(parentDirectory, repository.DisplayName())

	acquirer.logger.Info("cloning repository", zap.String("repository", repository.Slug()))
	if _, cloneError := acquirer.runGit(ctx, parentDirectory, "clone", shallowDepthArgument, repository.CloneURL(), destination); cloneError != nil {
		return Source{}, cloneError
	}

	source := Source{Name: repository.DisplayName(), Root: destination}
	if request.PullRequest <= 0 {
		return source, nil
	}

	branchName := fmt.Sprintf(pullRequestBranchFormat, request.PullRequest)
	acquirer.logger.Info("checking out pull request", zap.String("repository", repository.Slug()), zap.Int("number", request.PullRequest))
	if _, fetchError := acquirer.runGit(ctx, destination, "fetch", shallowDepthArgument, remoteName, fmt.Sprintf(pullRequestReferenceFormat, request.PullRequest, branchName)); fetchError != nil {
		return Source{}, fetchError
	}
	if _, checkoutError := acquirer.runGit(ctx, destination, "checkout", branchName); checkoutError != nil {
		return Source{}, checkoutError
	}
	if acquirer.pullRequests == nil {
		return Source{}, fmt.Errorf(listPullRequestFilesFormat, request.PullRequest, ErrNoPullRequestProvider)
	}
	changedPaths, listError := acquirer.pullRequests.ListPullRequestFiles(ctx, repository.Owner, repository.Name, request.PullRequest)
	if listError != nil {
		return Source{}, fmt.Errorf(listPullRequestFilesFormat, request.PullRequest, listError)
	}
	source.PullRequestScoped = true
	source.PullRequestPaths = changedPaths
	return source, nil
}
