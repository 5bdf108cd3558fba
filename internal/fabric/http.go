package fabric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// HTTPClient talks to the platform job API over HTTP.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a fabric client for the given platform API base URL.
// The token is sent as a bearer credential on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("platform request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode platform response: %w", err)
		}
	}
	return nil
}

type errorPayload struct {
	Error string `json:"error"`
}

func (c *HTTPClient) apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload errorPayload
	_ = json.Unmarshal(raw, &payload)
	message := payload.Error
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}

	// The platform reports a duplicate active job name as a client error
	// mentioning the existing job.
	if resp.StatusCode == http.StatusConflict ||
		(resp.StatusCode == http.StatusBadRequest && strings.Contains(message, "already exists")) {
		return fmt.Errorf("%w: %s", ErrNameConflict, message)
	}
	return fmt.Errorf("platform API error (status %d): %s", resp.StatusCode, message)
}

// SubmitJob starts a new job and returns its initial description.
func (c *HTTPClient) SubmitJob(ctx context.Context, req *SubmitRequest) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodPost, "/jobs", nil, req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

type jobsPage struct {
	Jobs []*Job `json:"jobs"`
}

// ListJobs returns jobs matching all requested tags in any of the requested
// statuses. The listing is consumed as a single sequential feed.
func (c *HTTPClient) ListJobs(ctx context.Context, opts ListOptions) ([]*Job, error) {
	query := url.Values{}
	for _, status := range opts.Statuses {
		query.Add("status", string(status))
	}
	for _, tag := range opts.Tags {
		query.Add("tag", tag)
	}

	var page jobsPage
	if err := c.do(ctx, http.MethodGet, "/jobs", query, nil, &page); err != nil {
		return nil, err
	}
	return page.Jobs, nil
}

// GetJob fetches the current description of one job.
func (c *HTTPClient) GetJob(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// KillJob requests termination of a job. No confirmation is awaited: the
// caller observes success by the job disappearing from the next listing.
func (c *HTTPClient) KillJob(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(id), nil, nil, nil)
}

type clusterConfig struct {
	Presets map[string]struct {
		CPU    float64 `json:"cpu"`
		Memory int64   `json:"memory"`
		GPU    int     `json:"gpu,omitempty"`
	} `json:"presets"`
}

// ListPresets returns the names of the compute presets the platform offers.
func (c *HTTPClient) ListPresets(ctx context.Context) ([]string, error) {
	var cfg clusterConfig
	if err := c.do(ctx, http.MethodGet, "/config", nil, nil, &cfg); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cfg.Presets))
	for name := range cfg.Presets {
		names = append(names, name)
	}
	return names, nil
}

type repositoriesPage struct {
	Repositories []string `json:"repositories"`
}

// ListHostedImages returns images hosted in the platform's own registry.
func (c *HTTPClient) ListHostedImages(ctx context.Context) ([]string, error) {
	var page repositoriesPage
	if err := c.do(ctx, http.MethodGet, "/images", nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Repositories, nil
}

type tagsPage struct {
	Tags []string `json:"tags"`
}

// ListHostedImageTags returns the tags of one platform-hosted image.
func (c *HTTPClient) ListHostedImageTags(ctx context.Context, image string) ([]string, error) {
	var page tagsPage
	path := "/images/" + url.PathEscape(image) + "/tags"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Tags, nil
}
