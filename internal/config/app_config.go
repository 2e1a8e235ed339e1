// Package config loads .git2promptconfig files and merges them with command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/fabiomolinar/git2prompt/internal/tokenizer"
	"github.com/fabiomolinar/git2prompt/internal/utils"
)

const (
	configurationType      = "toml"
	defaultOutputDirectory = "output"

	determineWorkingDirFormat = "determine working directory: %w"
	resolveConfigPathFormat   = "resolve configuration path %s: %w"
	statConfigFormat          = "stat configuration %s: %w"
	configIsDirectoryFormat   = "configuration path %s is a directory"
	readConfigFormat          = "read configuration from %s: %w"
	decodeConfigFormat        = "decode configuration from %s: %w"
	explicitConfigMissingFmt  = "configuration file %s: %w"
)

// ErrConfigurationNotFound reports an explicitly requested configuration file that does not exist.
var ErrConfigurationNotFound = errors.New("configuration file not found")

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
	// SourceDirectory is consulted last, for local runs.
	SourceDirectory string
}

// ApplicationConfiguration mirrors the keys of a .git2promptconfig file. Pointer fields
// distinguish unset keys from explicit false or zero values.
type ApplicationConfiguration struct {
	IgnorePatterns  []string           `mapstructure:"ignore_patterns"`
	SplitFolders    []string           `mapstructure:"split_folders"`
	NoHeaders       *bool              `mapstructure:"no_headers"`
	IgnoreFile      string             `mapstructure:"ignore_file"`
	MergeFiles      *bool              `mapstructure:"merge_files"`
	UseGitIgnore    *bool              `mapstructure:"use_gitignore"`
	OutputDirectory string             `mapstructure:"output_dir"`
	Workers         *int               `mapstructure:"workers"`
	Tokens          TokenConfiguration `mapstructure:"tokens"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// Overrides carries values given on the command line. Nil pointers and empty strings leave the
// configuration value in place.
type Overrides struct {
	ExcludePatterns []string
	SplitFolders    []string
	NoHeaders       *bool
	IgnoreFile      string
	MergeFiles      *bool
	UseGitIgnore    *bool
	OutputDirectory string
	Workers         *int
	TokensEnabled   *bool
	TokenModel      string
}

// Settings are the effective values of a run.
type Settings struct {
	IgnorePatterns  []string
	SplitFolders    []string
	NoHeaders       bool
	IgnoreFile      string
	MergeFiles      bool
	UseGitIgnore    bool
	OutputDirectory string
	Workers         int
	TokensEnabled   bool
	TokenModel      string
	// IgnoreFileRequired is set when IgnoreFile names something other than the default file.
	IgnoreFileRequired bool
}

// LoadApplicationConfiguration finds and decodes the configuration file. The explicit path wins,
// then the working directory, then the source directory. It returns the path that was read, empty
// when no file was found.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, string, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, "", fmt.Errorf(determineWorkingDirFormat, err)
		}
		workingDirectory = currentDirectory
	}

	if options.ExplicitFilePath != "" {
		explicitPath, resolveErr := resolveExplicitPath(workingDirectory, options.ExplicitFilePath)
		if resolveErr != nil {
			return ApplicationConfiguration{}, "", resolveErr
		}
		configuration, found, loadErr := loadConfigurationFromPath(explicitPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, "", loadErr
		}
		if !found {
			return ApplicationConfiguration{}, "", fmt.Errorf(explicitConfigMissingFmt, explicitPath, ErrConfigurationNotFound)
		}
		return configuration.normalized(), explicitPath, nil
	}

	candidates := []string{filepath.Join(workingDirectory, utils.ConfigFileName)}
	if options.SourceDirectory != "" {
		candidates = append(candidates, filepath.Join(options.SourceDirectory, utils.ConfigFileName))
	}
	for _, candidate := range candidates {
		configuration, found, loadErr := loadConfigurationFromPath(candidate)
		if loadErr != nil {
			return ApplicationConfiguration{}, "", loadErr
		}
		if found {
			return configuration.normalized(), candidate, nil
		}
	}
	return ApplicationConfiguration{}, "", nil
}

func resolveExplicitPath(workingDirectory, explicitPath string) (string, error) {
	if filepath.IsAbs(explicitPath) {
		return explicitPath, nil
	}
	if workingDirectory == "" {
		absolute, err := filepath.Abs(explicitPath)
		if err != nil {
			return "", fmt.Errorf(resolveConfigPathFormat, explicitPath, err)
		}
		return absolute, nil
	}
	return filepath.Join(workingDirectory, explicitPath), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, bool, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, false, nil
		}
		return ApplicationConfiguration{}, false, fmt.Errorf(statConfigFormat, path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, false, fmt.Errorf(configIsDirectoryFormat, path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType(configurationType)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, false, fmt.Errorf(readConfigFormat, path, readErr)
	}
	var configuration ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&configuration); decodeErr != nil {
		return ApplicationConfiguration{}, false, fmt.Errorf(decodeConfigFormat, path, decodeErr)
	}
	return configuration, true, nil
}

func (configuration ApplicationConfiguration) normalized() ApplicationConfiguration {
	configuration.IgnorePatterns = utils.DeduplicatePatterns(configuration.IgnorePatterns)
	configuration.SplitFolders = utils.DeduplicatePatterns(configuration.SplitFolders)
	return configuration
}

// Resolve applies overrides on top of the configuration and fills in defaults. Pattern and split
// folder lists concatenate, configuration first.
func (configuration ApplicationConfiguration) Resolve(overrides Overrides) Settings {
	settings := Settings{
		IgnorePatterns:  utils.DeduplicatePatterns(append(append([]string{}, configuration.IgnorePatterns...), overrides.ExcludePatterns...)),
		SplitFolders:    utils.DeduplicatePatterns(append(append([]string{}, configuration.SplitFolders...), overrides.SplitFolders...)),
		NoHeaders:       firstBool(false, overrides.NoHeaders, configuration.NoHeaders),
		IgnoreFile:      firstString(utils.IgnoreFileName, overrides.IgnoreFile, configuration.IgnoreFile),
		MergeFiles:      firstBool(false, overrides.MergeFiles, configuration.MergeFiles),
		UseGitIgnore:    firstBool(true, overrides.UseGitIgnore, configuration.UseGitIgnore),
		OutputDirectory: firstString(defaultOutputDirectory, overrides.OutputDirectory, configuration.OutputDirectory),
		Workers:         runtime.NumCPU(),
		TokensEnabled:   firstBool(false, overrides.TokensEnabled, configuration.Tokens.Enabled),
		TokenModel:      firstString(tokenizer.DefaultModel, overrides.TokenModel, configuration.Tokens.Model),
	}
	settings.IgnoreFileRequired = settings.IgnoreFile != utils.IgnoreFileName
	for _, workers := range []*int{overrides.Workers, configuration.Workers} {
		if workers != nil && *workers > 0 {
			settings.Workers = *workers
			break
		}
	}
	return settings
}

func firstBool(fallback bool, values ...*bool) bool {
	for _, value := range values {
		if value != nil {
			return *value
		}
	}
	return fallback
}

func firstString(fallback string, values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return fallback
}
