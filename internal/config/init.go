package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fabiomolinar/git2prompt/internal/utils"
)

const defaultConfigurationTemplate = `# git2prompt configuration
# Patterns use .gitignore syntax and are applied after ignore files.
ignore_patterns = []
# Folders that receive their own output document.
split_folders = []
no_headers = false
ignore_file = ".git2promptignore"
merge_files = false
use_gitignore = true
output_dir = "output"

[tokens]
enabled = false
model = "gpt-4o"
`

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Force            bool
	WorkingDirectory string
}

// InitializeConfiguration writes the default configuration into the working directory.
func InitializeConfiguration(options InitOptions) (string, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		current, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory for configuration: %w", err)
		}
		workingDirectory = current
	}
	destinationPath := filepath.Join(workingDirectory, utils.ConfigFileName)

	if _, err := os.Stat(destinationPath); err == nil {
		if !options.Force {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, err)
	}

	if err := os.WriteFile(destinationPath, []byte(defaultConfigurationTemplate), 0o600); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}

	return destinationPath, nil
}
