package acquire

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRepository reports a repository reference that is neither owner/repo nor a GitHub URL.
var ErrInvalidRepository = errors.New("invalid repository reference")

const (
	githubHost           = "github.com"
	gitSuffix            = ".git"
	cloneURLFormat       = "https://github.com/%s/%s.git"
	invalidRepositoryFmt = "%w: %q"
)

// Repository identifies a GitHub repository.
type Repository struct {
	Owner string
	Name  string
}

// ParseRepository accepts "owner/repo", "github.com/owner/repo", or an https/http GitHub URL,
// with or without a trailing ".git".
func ParseRepository(reference string) (Repository, error) {
	trimmed := strings.TrimSpace(reference)
	for _, scheme := range []string{"https://", "http://"} {
		trimmed = strings.TrimPrefix(trimmed, scheme)
	}
	trimmed = strings.TrimPrefix(trimmed, "www.")
	trimmed = strings.TrimPrefix(trimmed, githubHost+"/")
	trimmed = strings.TrimSuffix(strings.TrimSuffix(trimmed, "/"), gitSuffix)

	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.ContainsAny(trimmed, " \t:") {
		return Repository{}, fmt.Errorf(invalidRepositoryFmt, ErrInvalidRepository, reference)
	}
	return Repository{Owner: parts[0], Name: parts[1]}, nil
}

// Slug returns "owner/repo".
func (repository Repository) Slug() string {
	return repository.Owner + "/" + repository.Name
}

// DisplayName returns "owner-repo", used for titles and file names.
func (repository Repository) DisplayName() string {
	return repository.Owner + "-" + repository.Name
}

// CloneURL returns the HTTPS clone URL.
func (repository Repository) CloneURL() string {
	return fmt.Sprintf(cloneURLFormat, repository.Owner, repository.Name)
}
