// Package githost pushes report snapshots to a GitHub repository through the
// contents API.
package githost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the GitHub contents API for a single repository.
type Client struct {
	BaseURL string
	Owner   string
	Repo    string
	Branch  string
	Token   string
	HTTP    *http.Client
}

// New creates a client. branch defaults to main.
func New(owner, repo, branch, token string) *Client {
	if branch == "" {
		branch = "main"
	}
	return &Client{
		BaseURL: "https://api.github.com",
		Owner:   owner,
		Repo:    repo,
		Branch:  branch,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether enough settings are present to push.
func (c *Client) Configured() bool {
	return c != nil && c.Owner != "" && c.Repo != "" && c.Token != ""
}

// PushFile creates or updates a file at path with the given commit message.
// It reads the current revision first to decide between create and update.
// Returns true when the file was newly created.
func (c *Client) PushFile(ctx context.Context, path, message string, content []byte) (bool, error) {
	sha, exists, err := c.currentSHA(ctx, path)
	if err != nil {
		return false, err
	}

	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  c.Branch,
	}
	if exists {
		payload["sha"] = sha
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(path), bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	c.decorate(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("github: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("github: push failed (%d): %s", resp.StatusCode, string(respBody))
	}
	return !exists, nil
}

// currentSHA fetches the blob SHA of path on the configured branch. exists is
// false when the file is not there yet.
func (c *Client) currentSHA(ctx context.Context, path string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentsURL(path)+"?ref="+c.Branch, nil)
	if err != nil {
		return "", false, err
	}
	c.decorate(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("github: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", false, fmt.Errorf("github: read failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("github: decode response failed: %w", err)
	}
	return out.SHA, true, nil
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.BaseURL, c.Owner, c.Repo, path)
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.Token)
}
