package toggl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://api.track.toggl.com/api/v9"

// Client talks to the Toggl Track API. Authentication is basic auth with the
// token as the username and the literal string "api_token" as the password.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient builds a client around the given API token.
func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a fake server.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	return c
}

// FetchAll fetches the time entries of the past days days together with the
// project name index, concurrently, and backfills entry project names from
// the index.
func (c *Client) FetchAll(ctx context.Context, days int) (*Data, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	var (
		entries  []TimeEntry
		projects map[int64]string
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = c.fetchTimeEntries(ctx, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		projects, err = c.fetchProjects(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range entries {
		if entries[i].ProjectName == "" {
			entries[i].ProjectName = projects[entries[i].projectID()]
		}
	}
	return &Data{Entries: entries, Projects: projects}, nil
}

func (c *Client) fetchTimeEntries(ctx context.Context, start, end time.Time) ([]TimeEntry, error) {
	path := fmt.Sprintf("/me/time_entries?start_date=%s&end_date=%s&meta=true",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return parseEntries(body), nil
}

func (c *Client) fetchProjects(ctx context.Context) (map[int64]string, error) {
	body, err := c.get(ctx, "/me/projects")
	if err != nil {
		return nil, err
	}

	// A malformed project list degrades to unresolved names, not a failed
	// fetch.
	var projects []Project
	_ = json.Unmarshal(body, &projects)

	names := make(map[int64]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	return names, nil
}

// parseEntries tolerates both response shapes: a bare array and an
// items-wrapped envelope.
func parseEntries(body []byte) []TimeEntry {
	var entries []TimeEntry
	if err := json.Unmarshal(body, &entries); err == nil {
		return entries
	}

	var wrapped struct {
		Items []TimeEntry `json:"items"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		return wrapped.Items
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.token, "api_token")
	req.Header.Set("Content-Type", "application/json")

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
