// Package bluesky talks to the Bluesky network: the public AppView for
// profile/follows lookups and the Jetstream firehose for ingestion.
package bluesky

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mahoot/internal/followees"
)

// Client is a minimal Bluesky AppView API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Bluesky client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Profile represents a Bluesky actor profile
type Profile struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// followsResponse is the wire shape of app.bsky.graph.getFollows
type followsResponse struct {
	Follows []Profile `json:"follows"`
	Cursor  string    `json:"cursor,omitempty"`
}

// GetProfile fetches an actor's profile
func (c *Client) GetProfile(actor string) (*Profile, error) {
	endpoint := fmt.Sprintf("%s/xrpc/app.bsky.actor.getProfile?actor=%s",
		c.baseURL, url.QueryEscape(actor))

	body, err := c.get(endpoint)
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}

	return &profile, nil
}

// GetFollows fetches one page of an actor's follows. Implements
// followees.FollowsClient.
func (c *Client) GetFollows(actor string, limit int, cursor string) (*followees.FollowsPage, error) {
	params := url.Values{}
	params.Set("actor", actor)
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	endpoint := fmt.Sprintf("%s/xrpc/app.bsky.graph.getFollows?%s", c.baseURL, params.Encode())

	body, err := c.get(endpoint)
	if err != nil {
		return nil, err
	}

	var response followsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse follows response: %w", err)
	}

	page := &followees.FollowsPage{Cursor: response.Cursor}
	for _, follow := range response.Follows {
		page.Follows = append(page.Follows, followees.Follow{
			DID:    follow.DID,
			Handle: follow.Handle,
		})
	}

	return page, nil
}

// get performs a GET request and returns the response body
func (c *Client) get(endpoint string) ([]byte, error) {
	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
