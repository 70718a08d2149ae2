package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://api.github.com"

// Client talks to the GitHub REST API with a token-authorized HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a client around the given personal access token.
func NewClient(token string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 30 * time.Second
	return &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a fake server.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	return c
}

// FetchSnapshot fetches the three open-item streams concurrently. It returns
// a snapshot only when all three succeed; any failure aborts the whole fetch
// so that a partial snapshot can never be mistaken for "everything else
// closed".
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		issues, err := c.fetchAssignedIssues(ctx)
		if err != nil {
			return err
		}
		snap.AssignedIssues = issues
		return nil
	})
	g.Go(func() error {
		prs, err := c.fetchMyOpenPRs(ctx)
		if err != nil {
			return err
		}
		snap.MyPRs = prs
		return nil
	})
	g.Go(func() error {
		prs, err := c.fetchReviewRequestedPRs(ctx)
		if err != nil {
			return err
		}
		snap.ReviewPRs = prs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// fetchAssignedIssues returns open issues assigned to the authenticated user.
// The endpoint mixes PRs in; those are dropped here and picked up by the
// search queries instead.
func (c *Client) fetchAssignedIssues(ctx context.Context) ([]Issue, error) {
	body, err := c.get(ctx, "/issues?filter=assigned&state=open&per_page=100")
	if err != nil {
		return nil, err
	}

	var issues []Issue
	if err := json.Unmarshal(body, &issues); err != nil {
		return nil, fmt.Errorf("failed to decode assigned issues: %w", err)
	}

	filtered := issues[:0]
	for _, issue := range issues {
		if !issue.IsPR() {
			filtered = append(filtered, issue)
		}
	}
	return normalize(filtered), nil
}

// fetchMyOpenPRs returns open pull requests authored by the user.
func (c *Client) fetchMyOpenPRs(ctx context.Context) ([]Issue, error) {
	return c.search(ctx, "author:@me is:open is:pr")
}

// fetchReviewRequestedPRs returns open pull requests awaiting the user's review.
func (c *Client) fetchReviewRequestedPRs(ctx context.Context) ([]Issue, error) {
	return c.search(ctx, "review-requested:@me is:open is:pr")
}

func (c *Client) search(ctx context.Context, query string) ([]Issue, error) {
	body, err := c.get(ctx, "/search/issues?per_page=100&q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}

	var result searchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode search result: %w", err)
	}
	return normalize(result.Items), nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "phi")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: ErrGeneric, Msg: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: ErrGeneric, Msg: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fetchErrorFor(resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return body, nil
}
