package saberis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"s2j/internal/config"
)

// ExportHeader identifies one unexported document waiting on the Saberis side.
type ExportHeader struct {
	GUID string `json:"guid"`
}

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
	tokens     *TokenStore
	token      string
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.SaberisTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.SaberisRateLimitRPS),
		tokens:     NewTokenStore(cfg.SaberisTokenFile),
	}
}

// GetUnexportedDocuments lists documents Saberis has not yet handed out.
func (c *Client) GetUnexportedDocuments(ctx context.Context) ([]ExportHeader, error) {
	body, err := c.fetch(ctx, "api/v1/export")
	if err != nil {
		return nil, err
	}

	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode export list: %w", err)
	}

	out := make([]ExportHeader, 0, len(raw))
	for _, entry := range raw {
		guid := asString(entry["guid"])
		if guid == "" {
			continue
		}
		out = append(out, ExportHeader{GUID: guid})
	}
	return out, nil
}

// GetExportDocument downloads the full JSON document for a GUID. The raw
// payload is returned alongside the decoded document so callers can archive
// it byte-identical.
func (c *Client) GetExportDocument(ctx context.Context, guid string) (Document, []byte, error) {
	body, err := c.fetch(ctx, "api/v1/export/json/"+url.PathEscape(guid))
	if err != nil {
		return Document{}, nil, err
	}
	doc, err := DecodeDocument(body)
	if err != nil {
		return Document{}, nil, fmt.Errorf("decode document %s: %w", guid, err)
	}
	return doc, body, nil
}

func (c *Client) authToken(ctx context.Context) (string, error) {
	if c.token != "" {
		return c.token, nil
	}
	if stored := c.tokens.Load(); stored != "" {
		c.token = stored
		return c.token, nil
	}

	if strings.TrimSpace(c.cfg.SaberisAuthToken) == "" {
		return "", errors.New("missing SABERIS_AUTH_TOKEN")
	}

	u, err := url.Parse(strings.TrimRight(c.cfg.SaberisBaseURL, "/") + "/api/v1/token")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("authToken", c.cfg.SaberisAuthToken)
	u.RawQuery = q.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("saberis token request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	// The token endpoint answers with a bare quoted string, not JSON.
	token := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if token == "" {
		return "", errors.New("saberis token response was empty")
	}
	if err := c.tokens.Save(token); err != nil {
		fmt.Printf("WARN: could not persist saberis token: %v\n", err)
	}
	c.token = token
	return token, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	token, err := c.authToken(ctx)
	if err != nil {
		return nil, err
	}

	u := strings.TrimRight(c.cfg.SaberisBaseURL, "/") + "/" + endpoint

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized {
			// Session token expired server-side; force a fresh one.
			c.token = ""
			_ = c.tokens.Save("")
			token, err = c.authToken(ctx)
			if err != nil {
				return nil, err
			}
			lastErr = fmt.Errorf("saberis status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				lastErr = fmt.Errorf("saberis status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("saberis api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("saberis request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
