// Package github talks to the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPITimeout         = 30 * time.Second
	defaultAPIBaseURL         = "https://api.github.com"
	defaultUserAgent          = "git2prompt"
	headerAuthorization       = "Authorization"
	headerAccept              = "Accept"
	headerUserAgent           = "User-Agent"
	headerGitHubAPIVersion    = "X-GitHub-Api-Version"
	acceptGitHubJSON          = "application/vnd.github+json"
	githubAPIVersionValue     = "2022-11-28"
	authorizationBearerPrefix = "Bearer "
	authorizationTokenPrefix  = "token "
	// TokenEnvironmentVariable holds the optional API token.
	TokenEnvironmentVariable = "GITHUB_TOKEN"

	filesPerPage          = 100
	maximumPages          = 30
	removedFileStatus     = "removed"
	errorBodyLimit        = 8 * 1024
	unexpectedStatusFmt   = "unexpected status %d for %s: %s"
	decodeResponseFailFmt = "decode response from %s: %w"
)

var (
	errMissingOwner      = errors.New("repository owner is required")
	errMissingRepository = errors.New("repository name is required")
	errInvalidNumber     = errors.New("pull request number must be positive")
)

type httpClient interface {
	Do(request *http.Request) (*http.Response, error)
}

type pullRequestFile struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// Client is a minimal GitHub REST client.
type Client struct {
	client                   httpClient
	apiBase                  string
	userAgent                string
	authorizationHeaderValue string
}

// NewClient returns a client using the public API endpoint. A nil client uses http.Client with a timeout.
func NewClient(client httpClient) Client {
	if client == nil {
		client = &http.Client{Timeout: defaultAPITimeout}
	}
	return Client{
		client:    client,
		apiBase:   defaultAPIBaseURL,
		userAgent: defaultUserAgent,
	}
}

// WithAPIBase points the client at another API endpoint.
func (apiClient Client) WithAPIBase(base string) Client {
	if base == "" {
		return apiClient
	}
	apiClient.apiBase = strings.TrimRight(base, "/")
	return apiClient
}

// WithAuthorizationToken configures the client to authenticate API calls.
func (apiClient Client) WithAuthorizationToken(token string) Client {
	apiClient.authorizationHeaderValue = formatAuthorizationHeaderValue(token)
	return apiClient
}

// ListPullRequestFiles returns the paths touched by a pull request, excluding removed files,
// in the order GitHub reports them.
func (apiClient Client) ListPullRequestFiles(ctx context.Context, owner string, repository string, number int) ([]string, error) {
	if owner == "" {
		return nil, errMissingOwner
	}
	if repository == "" {
		return nil, errMissingRepository
	}
	if number <= 0 {
		return nil, errInvalidNumber
	}

	var changedPaths []string
	for page := 1; page <= maximumPages; page++ {
		pageURL, urlError := apiClient.buildPullRequestFilesURL(owner, repository, number, page)
		if urlError != nil {
			return nil, urlError
		}
		var files []pullRequestFile
		if getError := apiClient.getJSON(ctx, pageURL, &files); getError != nil {
			return nil, getError
		}
		for _, file := range files {
			if file.Status == removedFileStatus || file.Filename == "" {
				continue
			}
			changedPaths = append(changedPaths, file.Filename)
		}
		if len(files) < filesPerPage {
			break
		}
	}
	return changedPaths, nil
}

func (apiClient Client) getJSON(ctx context.Context, apiURL string, target any) error {
	request, requestErr := apiClient.buildRequest(ctx, apiURL)
	if requestErr != nil {
		return requestErr
	}
	response, responseErr := apiClient.client.Do(request)
	if responseErr != nil {
		return responseErr
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, errorBodyLimit))
		return fmt.Errorf(unexpectedStatusFmt, response.StatusCode, apiURL, strings.TrimSpace(string(body)))
	}
	if decodeErr := json.NewDecoder(response.Body).Decode(target); decodeErr != nil {
		return fmt.Errorf(decodeResponseFailFmt, apiURL, decodeErr)
	}
	return nil
}

func (apiClient Client) buildRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if requestErr != nil {
		return nil, requestErr
	}
	if apiClient.userAgent != "" {
		request.Header.Set(headerUserAgent, apiClient.userAgent)
	}
	if apiClient.authorizationHeaderValue != "" {
		request.Header.Set(headerAuthorization, apiClient.authorizationHeaderValue)
	}
	request.Header.Set(headerAccept, acceptGitHubJSON)
	request.Header.Set(headerGitHubAPIVersion, githubAPIVersionValue)
	return request, nil
}

func (apiClient Client) buildPullRequestFilesURL(owner string, repository string, number int, page int) (string, error) {
	parsedURL, parseErr := url.Parse(apiClient.apiBase)
	if parseErr != nil {
		return "", parseErr
	}
	segments := []string{
		strings.TrimSuffix(parsedURL.Path, "/"),
		"repos",
		owner,
		repository,
		"pulls",
		strconv.Itoa(number),
		"files",
	}
	parsedURL.Path = strings.Join(segments, "/")
	query := parsedURL.Query()
	query.Set("per_page", strconv.Itoa(filesPerPage))
	query.Set("page", strconv.Itoa(page))
	parsedURL.RawQuery = query.Encode()
	return parsedURL.String(), nil
}

func formatAuthorizationHeaderValue(rawToken string) string {
	trimmed := strings.TrimSpace(rawToken)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	bearerLower := strings.ToLower(authorizationBearerPrefix)
	tokenLower := strings.ToLower(authorizationTokenPrefix)
	if strings.HasPrefix(lower, bearerLower) || strings.HasPrefix(lower, tokenLower) {
		return trimmed
	}
	if strings.Contains(trimmed, ".") {
		return authorizationBearerPrefix + trimmed
	}
	return authorizationTokenPrefix + trimmed
}
