// Package api is the client for the catalogue REST service: play counts,
// radio seeds, track lookup and audio resource fetches.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/austinkregel/local-media/playerd/internal/logging"
	"github.com/austinkregel/local-media/playerd/internal/types"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8080/api"

	defaultTimeout = 30 * time.Second
)

// APIError is returned for non-2xx responses.
type APIError struct {
	Status int
	Path   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %s: status %d", e.Path, e.Status)
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
	HTTPClient  *http.Client
}

// Client talks to the catalogue REST service.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
	log         zerolog.Logger
}

// New creates a new API client.
func New(opts Options) (*Client, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", raw)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:     base,
		httpClient:  httpClient,
		maxRetries:  opts.MaxRetries,
		baseBackoff: opts.BaseBackoff,
		log:         logging.For("api"),
	}, nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// TrackPlayed increments the play count of a track (POST /track/{id}/play).
func (c *Client) TrackPlayed(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodPost, "/track/"+url.PathEscape(id)+"/play")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// RadioQueue returns the tracks that follow a seed track (GET /radio/start/{id}).
func (c *Client) RadioQueue(ctx context.Context, id string) ([]types.Track, error) {
	var tracks []types.Track
	if err := c.getJSON(ctx, "/radio/start/"+url.PathEscape(id), &tracks); err != nil {
		return nil, err
	}
	if tracks == nil {
		tracks = []types.Track{}
	}
	return tracks, nil
}

// Track looks up a single track (GET /track/{id}).
func (c *Client) Track(ctx context.Context, id string) (types.Track, error) {
	var track types.Track
	if err := c.getJSON(ctx, "/track/"+url.PathEscape(id), &track); err != nil {
		return types.Track{}, err
	}
	if track.ID == "" {
		track.ID = id
	}
	return track, nil
}

// Open fetches an audio resource. Relative paths are resolved against the
// service host. The caller closes the body.
func (c *Client) Open(ctx context.Context, audioPath string) (io.ReadCloser, error) {
	target, err := c.ResolveURL(audioPath)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &APIError{Status: resp.StatusCode, Path: audioPath}
	}
	return resp.Body, nil
}

// ResolveURL turns an audio path into an absolute URL.
func (c *Client) ResolveURL(audioPath string) (string, error) {
	if audioPath == "" {
		return "", fmt.Errorf("empty audio path")
	}
	ref, err := url.Parse(audioPath)
	if err != nil {
		return "", fmt.Errorf("invalid audio path %q: %w", audioPath, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) getJSON(ctx context.Context, path string, result interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &APIError{Status: resp.StatusCode, Path: path}
	}
	return resp, nil
}
