package diagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/voltfield/backend/pkg/errors"
)

const (
	serviceName        = "diagram API"
	defaultRateLimit   = 5 // requests per second
	requestTimeout     = 30 * time.Second
	maxAttempts        = 3
	retryBackoff       = 500 * time.Millisecond
	maxErrorBodyLength = 512
)

// Client talks to the diagram platform's REST API. Calls are throttled
// client-side so bulk syncs stay inside the platform's rate limits.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client from environment configuration
func NewClient() *Client {
	rps := defaultRateLimit
	if v := os.Getenv("DIAGRAM_API_RATE_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			rps = parsed
		}
	}

	return NewClientWithConfig(os.Getenv("DIAGRAM_API_URL"), os.Getenv("DIAGRAM_API_TOKEN"), rps)
}

// NewClientWithConfig builds a client with explicit settings
func NewClientWithConfig(baseURL, token string, rps int) *Client {
	if rps <= 0 {
		rps = defaultRateLimit
	}

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), rps*2),
	}
}

// GetDocumentContents fetches every page and shape of a document
func (c *Client) GetDocumentContents(ctx context.Context, externalDocID string) (*DocumentContents, error) {
	if c.baseURL == "" {
		return nil, errors.NewUpstreamError(serviceName, 0, "DIAGRAM_API_URL is not configured")
	}

	url := fmt.Sprintf("%s/documents/%s/contents", c.baseURL, externalDocID)

	body, err := c.getJSON(ctx, url, externalDocID)
	if err != nil {
		return nil, err
	}

	var contents DocumentContents
	if err := json.Unmarshal(body, &contents); err != nil {
		return nil, errors.NewUpstreamError(serviceName, 0, fmt.Sprintf("malformed document payload: %v", err))
	}

	if contents.DocumentID == "" {
		contents.DocumentID = externalDocID
	}
	return &contents, nil
}

// getJSON performs a throttled GET with retries on transient failures
func (c *Client) getJSON(ctx context.Context, url, resourceID string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.doGet(ctx, url, resourceID)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable || attempt == maxAttempts {
			return nil, err
		}

		log.Printf("⚠️ Diagram API attempt %d/%d failed, retrying: %v", attempt, maxAttempts, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}

	return nil, lastErr
}

func (c *Client) doGet(ctx context.Context, url, resourceID string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, errors.NewInternalError("failed to build diagram API request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors are worth another attempt
		return nil, true, errors.NewUpstreamError(serviceName, 0, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, true, errors.NewUpstreamError(serviceName, 0, readErr.Error())
		}
		return data, false, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, false, errors.NewNotFoundError("diagram document", resourceID)

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, errors.NewUpstreamError(serviceName, resp.StatusCode, readErrorBody(resp.Body))

	default:
		return nil, false, errors.NewUpstreamError(serviceName, resp.StatusCode, readErrorBody(resp.Body))
	}
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodyLength))
	if err != nil || len(data) == 0 {
		return "no response body"
	}
	return string(data)
}
