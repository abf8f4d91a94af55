// pkg/registry/client.go
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client handles HTTP requests against a Docker v2 registry
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	token      string
}

// NewClient creates a registry client with the default timeout
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, DefaultTimeout)
}

// NewClientWithTimeout creates a registry client with a custom timeout
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultRegistry
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:   baseURL,
		userAgent: "rcpr/1.0",
	}
}

// Authenticate obtains a pull token for the repository
func (c *Client) Authenticate(ctx context.Context, repository string) error {
	endpoint := fmt.Sprintf("%s/v2/auth?service=quay.io&scope=%s",
		c.baseURL, url.QueryEscape(fmt.Sprintf("repository:%s:pull", repository)))

	resp, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("authenticating to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("decoding auth response: %w", err)
	}
	if auth.Token == "" {
		return fmt.Errorf("auth response for %s carried no token", repository)
	}
	c.token = auth.Token
	return nil
}

// Manifest fetches the image manifest for a repository tag
func (c *Client) Manifest(ctx context.Context, repository, tag string) (*Manifest, error) {
	endpoint := fmt.Sprintf("%s/v2/%s/manifests/%s", c.baseURL, repository, tag)

	resp, err := c.get(ctx, endpoint, map[string]string{"Accept": manifestMediaType})
	if err != nil {
		return nil, fmt.Errorf("fetching manifest %s:%s: %w", repository, tag, err)
	}
	defer resp.Body.Close()

	var manifest Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if len(manifest.Layers) == 0 {
		return nil, fmt.Errorf("manifest %s:%s lists no layers", repository, tag)
	}
	return &manifest, nil
}

// Blob streams a layer blob; the caller owns the returned body
func (c *Client) Blob(ctx context.Context, repository, digest string) (io.ReadCloser, error) {
	endpoint := fmt.Sprintf("%s/v2/%s/blobs/%s", c.baseURL, repository, digest)

	resp, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching blob %s: %w", digest, err)
	}
	return resp.Body, nil
}

func (c *Client) get(ctx context.Context, endpoint string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d for %s: %s", resp.StatusCode, endpoint, string(body))
	}
	return resp, nil
}
