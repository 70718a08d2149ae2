// Package github fetches the open issues and pull requests relevant to the
// authenticated user from the GitHub REST API.
package github

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownRepo is the container sentinel used when a repository name cannot be
// resolved from any of an item's fields.
const UnknownRepo = "unknown"

// User is the author of an issue or pull request.
type User struct {
	Login string `json:"login"`
}

// Repository identifies the repo an item belongs to.
type Repository struct {
	FullName string `json:"full_name"`
}

// Issue is a GitHub issue or pull request as returned by the issues and
// search endpoints. The search endpoint represents PRs with the same shape.
type Issue struct {
	ID            int64           `json:"id"`
	Number        int64           `json:"number"`
	Title         string          `json:"title"`
	HTMLURL       string          `json:"html_url"`
	State         string          `json:"state"`
	Body          string          `json:"body"`
	Repository    *Repository     `json:"repository,omitempty"`
	RepositoryURL string          `json:"repository_url,omitempty"`
	User          *User           `json:"user,omitempty"`
	PullRequest   json.RawMessage `json:"pull_request,omitempty"`
}

// IsPR reports whether the item is a pull request. The issues endpoint
// returns PRs with a pull_request stub attached.
func (i *Issue) IsPR() bool {
	return len(i.PullRequest) > 0
}

// RepoName resolves the owner/repo name, trying the repository field, then
// the API resource URL, then the canonical URL, and finally falling back to
// the UnknownRepo sentinel.
func (i *Issue) RepoName() string {
	if i.Repository != nil && i.Repository.FullName != "" {
		return i.Repository.FullName
	}
	if name, ok := repoFromAPIURL(i.RepositoryURL); ok {
		return name
	}
	if name, ok := repoFromHTMLURL(i.HTMLURL); ok {
		return name
	}
	return UnknownRepo
}

// repoFromAPIURL extracts owner/repo from a resource URL like
// https://api.github.com/repos/owner/repo.
func repoFromAPIURL(url string) (string, bool) {
	if url == "" {
		return "", false
	}
	parts := strings.Split(url, "/")
	if len(parts) < 2 {
		return "", false
	}
	return fmt.Sprintf("%s/%s", parts[len(parts)-2], parts[len(parts)-1]), true
}

// repoFromHTMLURL extracts owner/repo from a canonical URL like
// https://github.com/owner/repo/issues/123.
func repoFromHTMLURL(url string) (string, bool) {
	parts := strings.Split(url, "/")
	if len(parts) >= 5 && parts[2] == "github.com" {
		return fmt.Sprintf("%s/%s", parts[3], parts[4]), true
	}
	return "", false
}

// Snapshot is one complete fetch of the three open-item streams. The
// reconciler treats absence from the snapshot as remote closure, so a
// Snapshot must only ever be built from a fully successful fetch.
type Snapshot struct {
	AssignedIssues []Issue
	MyPRs          []Issue
	ReviewPRs      []Issue
}

// searchResult is the envelope of the search endpoint.
type searchResult struct {
	TotalCount int64   `json:"total_count"`
	Items      []Issue `json:"items"`
}

// normalize backfills Repository so every item carries a resolved container
// name, even when only a URL was available.
func normalize(issues []Issue) []Issue {
	for idx := range issues {
		if issues[idx].Repository == nil {
			issues[idx].Repository = &Repository{FullName: issues[idx].RepoName()}
		}
	}
	return issues
}
