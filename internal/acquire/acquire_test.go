package acquire_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fabiomolinar/git2prompt/internal/acquire"
)

func writeTree(testingHandle *testing.T, root string, relativePaths ...string) {
	testingHandle.Helper()
	for _, relativePath := range relativePaths {
		absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
		if mkdirError := os.MkdirAll(filepath.Dir(absolutePath), 0o755); mkdirError != nil {
			testingHandle.Fatalf("mkdir: %v", mkdirError)
		}
		if writeError := os.WriteFile(absolutePath, []byte(relativePath), 0o600); writeError != nil {
			testingHandle.Fatalf("write: %v", writeError)
		}
	}
}

func collectWalk(root string, options acquire.WalkOptions) []string {
	var relativePaths []string
	for relativePath, absolutePath := range acquire.Walk(root, options) {
		if !strings.HasSuffix(filepath.ToSlash(absolutePath), relativePath) {
			return nil
		}
		relativePaths = append(relativePaths, relativePath)
	}
	return relativePaths
}

func TestWalkLexicalOrderAndPruning(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "b.txt", "a/z.go", "a/b/c.go", ".git/HEAD", "vendor/lib.go", "A.md")

	all := collectWalk(root, acquire.WalkOptions{})
	expected := []string{"A.md", "a/b/c.go", "a/z.go", "b.txt", "vendor/lib.go"}
	if strings.Join(all, ",") != strings.Join(expected, ",") {
		t.Fatalf("unexpected walk order %v, want %v", all, expected)
	}

	again := collectWalk(root, acquire.WalkOptions{})
	if strings.Join(again, ",") != strings.Join(all, ",") {
		t.Fatalf("second iteration differs: %v", again)
	}

	var prunedDirectories []string
	pruned := collectWalk(root, acquire.WalkOptions{Prune: func(relativeDirectory string) bool {
		prunedDirectories = append(prunedDirectories, relativeDirectory)
		return relativeDirectory == "vendor" || relativeDirectory == "a/b"
	}})
	if strings.Join(pruned, ",") != "A.md,a/z.go,b.txt" {
		t.Fatalf("unexpected pruned walk %v", pruned)
	}
	for _, directory := range prunedDirectories {
		if directory == ".git" {
			t.Fatalf(".git must never reach the prune callback")
		}
	}
}

func TestWalkStopsEarly(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "1.txt", "2.txt", "3.txt")

	count := 0
	for range acquire.Walk(root, acquire.WalkOptions{}) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("expected to stop after 2 entries, got %d", count)
	}
}

func TestParseRepository(t *testing.T) {
	testCases := []struct {
		reference     string
		expectSlug    string
		expectInvalid bool
	}{
		{reference: "owner/repo", expectSlug: "owner/repo"},
		{reference: "https://github.com/owner/repo", expectSlug: "owner/repo"},
		{reference: "https://github.com/owner/repo.git", expectSlug: "owner/repo"},
		{reference: "github.com/owner/repo/", expectSlug: "owner/repo"},
		{reference: "owner", expectInvalid: true},
		{reference: "owner/repo/extra", expectInvalid: true},
		{reference: "/repo", expectInvalid: true},
		{reference: "git@github.com:owner/repo.git", expectInvalid: true},
	}
	for _, testCase := range testCases {
		repository, parseError := acquire.ParseRepository(testCase.reference)
		if testCase.expectInvalid {
			if !errors.Is(parseError, acquire.ErrInvalidRepository) {
				t.Fatalf("ParseRepository(%q) expected ErrInvalidRepository, got %v", testCase.reference, parseError)
			}
			continue
		}
		if parseError != nil || repository.Slug() != testCase.expectSlug {
			t.Fatalf("ParseRepository(%q)=%+v, %v", testCase.reference, repository, parseError)
		}
	}

	repository, _ := acquire.ParseRepository("owner/repo")
	if repository.DisplayName() != "owner-repo" || repository.CloneURL() != "https://github.com/owner/repo.git" {
		t.Fatalf("unexpected naming %q %q", repository.DisplayName(), repository.CloneURL())
	}
}

type recordingGit struct {
	mutex    sync.Mutex
	commands []string
	failOn   string
}

func (recorder *recordingGit) run(_ context.Context, workingDirectory string, arguments ...string) (string, error) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	command := strings.Join(arguments, " ")
	recorder.commands = append(recorder.commands, command)
	if recorder.failOn != "" && strings.Contains(command, recorder.failOn) {
		return "", errors.New("git failed")
	}
	if arguments[0] == "clone" {
		destination := arguments[len(arguments)-1]
		if mkdirError := os.MkdirAll(filepath.Join(destination, "src"), 0o755); mkdirError != nil {
			return "", mkdirError
		}
	}
	return "", nil
}

type stubPullRequests struct {
	paths []string
}

func (stub stubPullRequests) ListPullRequestFiles(_ context.Context, owner string, repository string, number int) ([]string, error) {
	if owner != "owner" || repository != "repo" || number != 7 {
		return nil, errors.New("unexpected pull request")
	}
	return stub.paths, nil
}

func TestAcquirerClonesAndChecksOutPullRequest(t *testing.T) {
	downloadDirectory := t.TempDir()
	recorder := &recordingGit{}
	acquirer := acquire.NewAcquirer(downloadDirectory, stubPullRequests{paths: []string{"src/a.go"}}, acquire.WithGitRunner(recorder.run))

	sources, acquireError := acquirer.Acquire(context.Background(), []acquire.Request{
		{Reference: "owner/repo", PullRequest: 7, Folder: "src"},
		{Reference: "other/project"},
	})
	if acquireError != nil {
		t.Fatalf("acquire: %v", acquireError)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	first := sources[0]
	if first.Name != "owner-repo" || !first.PullRequestScoped || len(first.PullRequestPaths) != 1 || first.Folder != "src" {
		t.Fatalf("unexpected first source %+v", first)
	}
	if sources[1].Name != "other-project" || sources[1].PullRequestScoped {
		t.Fatalf("unexpected second source %+v", sources[1])
	}

	joined := strings.Join(recorder.commands, "\n")
	for _, fragment := range []string{
		"clone --depth=1 https://github.com/owner/repo.git",
		"fetch --depth=1 origin pull/7/head:git2prompt-pr-7",
		"checkout git2prompt-pr-7",
		"clone --depth=1 https://github.com/other/project.git",
	} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("missing git command %q in %q", fragment, joined)
		}
	}
}

func TestAcquirerPullRequestSkipsFolderCheck(t *testing.T) {
	recorder := &recordingGit{}
	acquirer := acquire.NewAcquirer(t.TempDir(), stubPullRequests{paths: []string{"src/a.go"}}, acquire.WithGitRunner(recorder.run))

	sources, acquireError := acquirer.Acquire(context.Background(), []acquire.Request{
		{Reference: "owner/repo", PullRequest: 7, Folder: "./does-not-exist/"},
	})
	if acquireError != nil {
		t.Fatalf("acquire: %v", acquireError)
	}
	if !sources[0].PullRequestScoped || sources[0].Folder != "does-not-exist" {
		t.Fatalf("unexpected source %+v", sources[0])
	}
}

func TestAcquirerFailures(t *testing.T) {
	localRoot := t.TempDir()
	writeTree(t, localRoot, "docs/readme.md", "file.txt")

	testCases := []struct {
		name        string
		request     acquire.Request
		failOn      string
		expectError error
	}{
		{name: "missing_folder", request: acquire.Request{Reference: localRoot, Local: true, Folder: "missing"}, expectError: acquire.ErrFolderNotFound},
		{name: "folder_is_file", request: acquire.Request{Reference: localRoot, Local: true, Folder: "file.txt"}, expectError: acquire.ErrFolderNotFound},
		{name: "local_is_file", request: acquire.Request{Reference: filepath.Join(localRoot, "file.txt"), Local: true}, expectError: acquire.ErrLocalSourceNotDirectory},
		{name: "invalid_repository", request: acquire.Request{Reference: "nope"}, expectError: acquire.ErrInvalidRepository},
		{name: "missing_provider", request: acquire.Request{Reference: "owner/repo", PullRequest: 3}, expectError: acquire.ErrNoPullRequestProvider},
	}
	for _, testCase := range testCases {
		recorder := &recordingGit{failOn: testCase.failOn}
		acquirer := acquire.NewAcquirer(t.TempDir(), nil, acquire.WithGitRunner(recorder.run))
		_, acquireError := acquirer.Acquire(context.Background(), []acquire.Request{testCase.request})
		if !errors.Is(acquireError, testCase.expectError) {
			t.Fatalf("%s: expected %v, got %v", testCase.name, testCase.expectError, acquireError)
		}
	}

	recorder := &recordingGit{failOn: "clone"}
	acquirer := acquire.NewAcquirer(t.TempDir(), nil, acquire.WithGitRunner(recorder.run))
	if _, acquireError := acquirer.Acquire(context.Background(), []acquire.Request{{Reference: "owner/repo"}}); acquireError == nil {
		t.Fatalf("expected clone failure to abort")
	}
}

func TestAcquirerLocalSource(t *testing.T) {
	localRoot := filepath.Join(t.TempDir(), "project")
	writeTree(t, localRoot, "docs/readme.md")

	acquirer := acquire.NewAcquirer(t.TempDir(), nil)
	sources, acquireError := acquirer.Acquire(context.Background(), []acquire.Request{{Reference: localRoot, Local: true, Folder: "./docs/"}})
	if acquireError != nil {
		t.Fatalf("acquire: %v", acquireError)
	}
	if sources[0].Name != "project" || sources[0].Root != localRoot || sources[0].Folder != "docs" {
		t.Fatalf("unexpected local source %+v", sources[0])
	}
}
