// Package prismic is a thin client for a Prismic-style content repository.
package prismic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client is a thin HTTP wrapper for the repository REST API.
// It resolves the master ref and injects the access token on every call.
type Client struct {
	endpoint    string
	accessToken string
	http        *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the API root endpoint,
// e.g. "https://spacetraveling.cdn.prismic.io/api/v2".
func NewClient(endpoint, accessToken string, opts ...Option) *Client {
	c := &Client{
		endpoint:    strings.TrimRight(endpoint, "/"),
		accessToken: accessToken,
		http:        &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiRoot struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

// masterRef returns the ref of the published content.
func (c *Client) masterRef(ctx context.Context) (string, error) {
	data, err := c.get(ctx, "", nil)
	if err != nil {
		return "", err
	}
	var root apiRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return "", fmt.Errorf("parsing api root: %w", err)
	}
	for _, r := range root.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}
	return "", fmt.Errorf("api root has no master ref")
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	if c.accessToken != "" {
		query.Set("access_token", c.accessToken)
	}

	u := c.endpoint + path
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s: %w", c.endpoint+path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API GET %s returned %d: %s", c.endpoint+path, resp.StatusCode, string(data))
	}

	return data, nil
}
