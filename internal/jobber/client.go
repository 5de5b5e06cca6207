package jobber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"s2j/internal/config"
)

const graphqlEndpoint = "https://api.getjobber.com/api/graphql"

const (
	maxAttempts    = 5
	initialBackoff = 250 * time.Millisecond
)

// Client talks to the Jobber GraphQL API. The underlying HTTP client
// carries an auto-refreshing OAuth token source.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiVersion string
}

func NewClient(ctx context.Context, cfg config.Config) (*Client, error) {
	auth, err := NewAuth(cfg)
	if err != nil {
		return nil, err
	}
	src, err := auth.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		httpClient: httpClient,
		endpoint:   graphqlEndpoint,
		apiVersion: cfg.JobberAPIVersion,
	}, nil
}

type gqlError struct {
	Message string `json:"message"`
	Path    []any  `json:"path"`
}

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []gqlError                 `json:"errors"`
}

type userError struct {
	Message string   `json:"message"`
	Path    []string `json:"path"`
}

// userErrorPayload is the common envelope of Jobber mutations.
type userErrorPayload struct {
	UserErrors []userError `json:"userErrors"`
}

func (p userErrorPayload) err(op string) error {
	if len(p.UserErrors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(p.UserErrors))
	for _, e := range p.UserErrors {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("%s rejected: %s", op, strings.Join(msgs, "; "))
}

// post sends one GraphQL operation and returns the data map keyed by
// top-level field. Transient HTTP failures are retried with backoff.
func (c *Client) post(ctx context.Context, opName, query string, variables map[string]any) (map[string]json.RawMessage, error) {
	if variables == nil {
		variables = map[string]any{}
	}
	payload, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff*time.Duration(1<<uint(attempt-1)) + time.Duration(rand.Int63n(int64(100*time.Millisecond)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-JOBBER-GRAPHQL-VERSION", c.apiVersion)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("jobber %s: %w", opName, err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("jobber %s: reading response: %w", opName, err)
			continue
		}

		if isRetryableStatus(resp.StatusCode) {
			lastErr = fmt.Errorf("jobber %s: status %d", opName, resp.StatusCode)
			fmt.Printf("WARN: jobber %s returned %d, attempt %d/%d\n", opName, resp.StatusCode, attempt+1, maxAttempts)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("jobber %s: status %d: %s", opName, resp.StatusCode, truncate(body, 200))
		}

		var gql gqlResponse
		if err := json.Unmarshal(body, &gql); err != nil {
			return nil, fmt.Errorf("jobber %s: decoding response: %w", opName, err)
		}
		if len(gql.Errors) > 0 {
			msgs := make([]string, 0, len(gql.Errors))
			for _, e := range gql.Errors {
				msgs = append(msgs, e.Message)
			}
			return nil, fmt.Errorf("jobber %s: graphql errors: %s", opName, strings.Join(msgs, "; "))
		}
		if gql.Data == nil {
			return nil, fmt.Errorf("jobber %s: response carried no data", opName)
		}
		return gql.Data, nil
	}
	return nil, lastErr
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
