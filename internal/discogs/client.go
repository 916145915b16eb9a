package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spinshelf/spinshelf/internal/config"
	"github.com/spinshelf/spinshelf/internal/loggy"
	"github.com/spinshelf/spinshelf/internal/throttle"
)

// Client handles HTTP communication with the Discogs API. Every request is
// issued through the shared throttle.Limiter so both sync phases draw from
// the one request budget.
type Client struct {
	baseURL    string
	username   string
	token      string
	userAgent  string
	perPage    int
	httpClient *http.Client
	limiter    *throttle.Limiter
	logger     *loggy.Logger
}

// NewClient creates a new Discogs API client
func NewClient(cfg config.DiscogsConfig, limiter *throttle.Limiter, logger *loggy.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		username:   cfg.Username,
		token:      cfg.Token,
		userAgent:  cfg.UserAgent,
		perPage:    cfg.PerPage,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}
}

// ListCollection fetches one page of the user's collection (folder 0, the
// "All" folder) in the service's stable added-date order.
func (c *Client) ListCollection(ctx context.Context, page int) (*CollectionResponse, error) {
	url := fmt.Sprintf(
		"%s/users/%s/collection/folders/0/releases?page=%d&per_page=%d&sort=added&sort_order=asc",
		c.baseURL, c.username, page, c.perPage,
	)

	var out CollectionResponse
	err := c.limiter.Do(ctx, func(ctx context.Context) error {
		return c.getJSON(ctx, url, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("listing collection page %d: %w", page, err)
	}

	return &out, nil
}

// GetRelease fetches the full descriptive metadata of a release
func (c *Client) GetRelease(ctx context.Context, releaseID int64) (*Release, error) {
	url := fmt.Sprintf("%s/releases/%d", c.baseURL, releaseID)

	var out Release
	err := c.limiter.Do(ctx, func(ctx context.Context) error {
		return c.getJSON(ctx, url, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("getting release %d: %w", releaseID, err)
	}

	return &out, nil
}

// AddToCollection adds a release to the user's collection (folder 1, the
// "Uncategorized" folder). A conflict response for a release that is
// already in the collection is reported as StatusAlreadyPresent, not as an
// error.
func (c *Client) AddToCollection(ctx context.Context, releaseID int64) (*AddResult, error) {
	url := fmt.Sprintf("%s/users/%s/collection/folders/1/releases/%d", c.baseURL, c.username, releaseID)

	result := &AddResult{ReleaseID: releaseID}
	err := c.limiter.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
			var body struct {
				InstanceID int64 `json:"instance_id"`
			}
			// The instance id is informational; a decode failure is not
			// a failed add
			if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
				result.InstanceID = body.InstanceID
			}
			result.Status = StatusAdded
			return nil

		case resp.StatusCode == http.StatusConflict:
			result.Status = StatusAlreadyPresent
			return nil

		default:
			return decodeAPIError(resp)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("adding release %d to collection: %w", releaseID, err)
	}

	return result, nil
}

// getJSON performs an authenticated GET and decodes the response into out
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Discogs token=%s", c.token))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
}

// decodeAPIError turns a non-2xx response into an *APIError, capturing the
// Retry-After hint on rate-limit rejections.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		apiErr.Message = body.Message
	} else {
		apiErr.Message = resp.Status
	}

	if apiErr.RateLimited() {
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
				apiErr.WaitHint = time.Duration(secs) * time.Second
			}
		}
	}

	return apiErr
}
