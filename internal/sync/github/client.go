// Package github talks to a GitHub-compatible REST API: user lookup,
// repository listing, and versioned reads/writes of a single snapshot file
// per repository.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Timeouts bounds each remote call individually so a hung API can never
// wedge the sync status.
type Timeouts struct {
	User time.Duration
	Repo time.Duration
	File time.Duration
}

// DefaultTimeouts match the product defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		User: 10 * time.Second,
		Repo: 15 * time.Second,
		File: 15 * time.Second,
	}
}

// Client is a minimal GitHub REST v3 client scoped to what sync needs.
type Client struct {
	baseURL  string
	token    string
	timeouts Timeouts
	http     *http.Client
}

// NewClient creates a client for the given API base URL and token.
func NewClient(baseURL, token string, timeouts Timeouts) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		timeouts: timeouts,
		http:     &http.Client{},
	}
}

// User is the authenticated account.
type User struct {
	Login string `json:"login"`
}

// Repo is one repository visible to the token.
type Repo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
}

// RemoteFile is the decoded content of a versioned remote file.
type RemoteFile struct {
	Content []byte
	// SHA is the version token identifying this exact content; required to
	// safely overwrite the file later.
	SHA string
}

// CurrentUser returns the account the token authenticates as.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.User)
	defer cancel()

	var user User
	if err := c.getJSON(ctx, "/user", &user); err != nil {
		return User{}, fmt.Errorf("current user: %w", err)
	}
	return user, nil
}

// ListRepos returns the repositories visible to the token, most recently
// updated first.
func (c *Client) ListRepos(ctx context.Context) ([]Repo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Repo)
	defer cancel()

	var repos []Repo
	if err := c.getJSON(ctx, "/user/repos?type=private&sort=updated&per_page=100", &repos); err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	return repos, nil
}

// GetFile fetches and decodes a file from a repository. Returns ErrNotFound
// if the path does not exist.
func (c *Client) GetFile(ctx context.Context, repoFullName, path string) (RemoteFile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.File)
	defer cancel()

	var body struct {
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := c.getJSON(ctx, c.contentsPath(repoFullName, path), &body); err != nil {
		return RemoteFile{}, fmt.Errorf("get file %s: %w", path, err)
	}

	// The API wraps base64 content in newlines.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
	if err != nil {
		return RemoteFile{}, fmt.Errorf("decode file %s: %w", path, err)
	}

	return RemoteFile{Content: raw, SHA: body.SHA}, nil
}

// PutFile creates or updates a file. SHA must be the version token of the
// content being replaced, or empty when the file is known not to exist.
// Returns the new version token, or ErrConflict when the token was stale.
func (c *Client) PutFile(ctx context.Context, repoFullName, path, message string, content []byte, sha string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.File)
	defer cancel()

	payload := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	if sha != "" {
		payload["sha"] = sha
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("put file %s: %w", path, err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.contentsPath(repoFullName, path), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("put file %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("put file %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("put file %s: %w", path, statusError(resp.StatusCode))
	}

	var result struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("put file %s: decode response: %w", path, err)
	}

	return result.Content.SHA, nil
}

func (c *Client) contentsPath(repoFullName, path string) string {
	return fmt.Sprintf("/repos/%s/contents/%s", repoFullName, url.PathEscape(path))
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
