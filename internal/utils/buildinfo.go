package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion      = "unknown"
	develVersion        = "(devel)"
	gitExecutableName   = "git"
	gitCommandFailedFmt = "git %s: %w: %s"
)

// RunGit executes git with the provided arguments inside workingDirectory and returns trimmed stdout.
// Standard error is folded into the returned error.
func RunGit(executionContext context.Context, workingDirectory string, arguments ...string) (string, error) {
	// #nosec G204
	command := exec.CommandContext(executionContext, gitExecutableName, arguments...)
	command.Dir = workingDirectory
	var standardOutput, standardError bytes.Buffer
	command.Stdout = &standardOutput
	command.Stderr = &standardError
	if runError := command.Run(); runError != nil {
		return "", fmt.Errorf(gitCommandFailedFmt, strings.Join(arguments, " "), runError, strings.TrimSpace(standardError.String()))
	}
	return strings.TrimSpace(standardOutput.String()), nil
}

// GetApplicationVersion attempts to determine the application version using various methods.
// It checks Go build info first, then falls back to git describe commands if available.
func GetApplicationVersion() string {
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != develVersion {
		return buildInfo.Main.Version
	}

	gitDirectoryPath, gitDirectoryError := findGitDirectory(".")
	if gitDirectoryError != nil {
		return unknownVersion
	}
	describeArguments := [][]string{
		{"describe", "--tags", "--exact-match"},
		{"describe", "--tags", "--long", "--dirty"},
	}
	for _, arguments := range describeArguments {
		describeOutput, describeError := RunGit(context.Background(), gitDirectoryPath, arguments...)
		if describeError == nil && describeOutput != "" {
			return describeOutput
		}
	}
	return unknownVersion
}

// findGitDirectory searches upward from the provided starting directory
// until it locates a directory containing the .git folder and returns
// the path to that directory.
func findGitDirectory(startDirectory string) (string, error) {
	absoluteStartDirectory, errorAbsolute := filepath.Abs(startDirectory)
	if errorAbsolute != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", startDirectory, errorAbsolute)
	}

	currentDirectory := absoluteStartDirectory
	for {
		gitPath := filepath.Join(currentDirectory, GitDirectoryName)
		fileInformation, errorStat := os.Stat(gitPath)
		if errorStat == nil && fileInformation.IsDir() {
			return currentDirectory, nil
		}

		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}

	return "", fmt.Errorf(".git directory not found in or above %s", absoluteStartDirectory)
}
