// Package gist talks to the GitHub Gist API and derives gist URLs and
// per-file anchors.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/starford/gistpub/internal/models"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com"

	defaultTimeout = 30 * time.Second
	apiVersion     = "2022-11-28"
	userAgent      = "gistpub/1.0"
)

// Files maps a gist file name to its content.
type Files map[string]models.SnippetFile

// Service creates and updates gists.
type Service interface {
	Create(ctx context.Context, files Files, public bool) (string, error)
	Update(ctx context.Context, id string, files Files, public bool) error
}

// APIError is a non-2xx response from the Gist API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// Client implements Service over the GitHub REST API.
type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithAPIURL points the client at another API root, e.g. GitHub Enterprise
// or a test server.
func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.apiURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a client authenticated with a bearer token.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("gist: token is required")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiURL:     DefaultAPIURL,
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type gistRequest struct {
	Files  Files `json:"files"`
	Public bool  `json:"public"`
}

type gistResponse struct {
	ID      string `json:"id"`
	HTMLURL string `json:"html_url"`
}

// Create makes a new gist and returns its id.
func (c *Client) Create(ctx context.Context, files Files, public bool) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/gists", gistRequest{Files: files, Public: public})
	if err != nil {
		return "", fmt.Errorf("gist: create: %w", err)
	}
	var out gistResponse
	if err := c.doRequest(req, &out); err != nil {
		return "", fmt.Errorf("gist: create: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("gist: create: response has no id")
	}
	return out.ID, nil
}

// Update replaces the given files of an existing gist. GitHub ignores the
// visibility flag on update; it is sent for symmetry with Create.
func (c *Client) Update(ctx context.Context, id string, files Files, public bool) error {
	if id == "" {
		return errors.New("gist: update: id is required")
	}
	req, err := c.newRequest(ctx, http.MethodPatch, "/gists/"+url.PathEscape(id), gistRequest{Files: files, Public: public})
	if err != nil {
		return fmt.Errorf("gist: update: %w", err)
	}
	if err := c.doRequest(req, nil); err != nil {
		return fmt.Errorf("gist: update %s: %w", id, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, endpoint)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (c *Client) doRequest(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
		var body struct {
			Message string `json:"message"`
		}
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil {
			if json.Unmarshal(data, &body) == nil {
				apiErr.Message = body.Message
			}
		}
		return apiErr
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}
