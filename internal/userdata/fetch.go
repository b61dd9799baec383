package userdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Fetcher retrieves a remote payload.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches payloads over HTTP(S). The zero value makes one
// attempt with http.DefaultClient and no timeout.
type HTTPFetcher struct {
	Client *http.Client
	// Timeout bounds each attempt. Zero means no timeout.
	Timeout time.Duration
	// Retries is the number of extra attempts after a failed one. Client
	// errors (4xx) are not retried.
	Retries uint
}

// Fetch returns the body of a successful GET of url. A non-2xx status is
// a failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	body, err := backoff.Retry(ctx, func() (string, error) {
		return f.get(ctx, url)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(f.Retries+1),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("unexpected response status: %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}
