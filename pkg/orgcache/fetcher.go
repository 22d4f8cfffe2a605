package orgcache

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// ContextPath is the server route that returns a Snapshot
const ContextPath = "/api/v1/organizations/{org_id}/context"

type contextEnvelope struct {
	Error   bool      `json:"error"`
	Data    *Snapshot `json:"data"`
	Message string    `json:"message"`
}

// HTTPFetcher fetches snapshots from the gatehouse API
type HTTPFetcher struct {
	client *resty.Client
}

// FetcherOption configures an HTTPFetcher
type FetcherOption func(*resty.Client)

// WithToken sends token as a bearer credential
func WithToken(token string) FetcherOption {
	return func(c *resty.Client) { c.SetAuthToken(token) }
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(c *resty.Client) { c.SetTimeout(timeout) }
}

// WithRetries retries transport failures and 5xx responses
func WithRetries(count int) FetcherOption {
	return func(c *resty.Client) {
		c.SetRetryCount(count).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second)
	}
}

// NewHTTPFetcher creates a fetcher against baseURL
func NewHTTPFetcher(baseURL string, opts ...FetcherOption) *HTTPFetcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(client)
	}
	return &HTTPFetcher{client: client}
}

// Fetch loads the caller's context for the organization
func (f *HTTPFetcher) Fetch(ctx context.Context, organizationID uuid.UUID) (*Snapshot, error) {
	var result contextEnvelope
	var failure contextEnvelope

	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("org_id", organizationID.String()).
		SetResult(&result).
		SetError(&failure).
		Get(ContextPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch organization context: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrNotAuthenticated
	case http.StatusForbidden, http.StatusNotFound:
		return nil, ErrAccessDenied
	default:
		return nil, fmt.Errorf("organization context request failed with status %d: %s", resp.StatusCode(), failure.Message)
	}

	if result.Error || result.Data == nil {
		return nil, fmt.Errorf("organization context response has no data: %s", result.Message)
	}
	if result.Data.FetchedAt.IsZero() {
		result.Data.FetchedAt = time.Now()
	}
	return result.Data, nil
}
