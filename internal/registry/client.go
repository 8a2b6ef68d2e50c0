package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"painel/internal/config"
)

// Client downloads the registry CSV published by the dashboard or a shared sheet.
type Client struct {
	url         string
	token       string
	maxAttempts int
	httpClient  *http.Client
	sleep       func(time.Duration)
}

func NewClient(cfg config.Config) *Client {
	attempts := cfg.RegistryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Client{
		url:         cfg.RegistryURL,
		token:       cfg.RegistryToken,
		maxAttempts: attempts,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.RegistryTimeoutMs) * time.Millisecond},
		sleep:       time.Sleep,
	}
}

func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	if strings.TrimSpace(c.url) == "" {
		return nil, errors.New("missing REGISTRY_URL")
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return nil, err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "text/csv")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < c.maxAttempts {
				c.sleep(time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond)
				lastErr = fmt.Errorf("registry status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("registry download error: status=%d body=%s", resp.StatusCode, truncate(string(body), 200))
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("registry request failed")
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

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
