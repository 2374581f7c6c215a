// Package fetch retrieves the source page over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Error describes a failed fetch. Status is 0 when no response arrived.
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the fetch failed because the deadline passed.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Client fetches pages with resty. Retries are disabled; a failed fetch is
// reported once and the caller decides what to do.
type Client struct {
	http *resty.Client
}

// NewClient creates a Client backed by the given transport. A nil transport
// uses http.DefaultTransport.
func NewClient(transport http.RoundTripper) *Client {
	c := resty.New().SetRetryCount(0)
	if transport != nil {
		c.SetTransport(transport)
	}
	return &Client{http: c}
}

// Fetch issues a GET and returns the response body. Non-2xx responses,
// transport failures and timeouts are returned as *Error.
func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, &Error{URL: url, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &Error{
			URL:    url,
			Status: resp.StatusCode(),
			Err:    fmt.Errorf("unexpected status %s", resp.Status()),
		}
	}
	return resp.Body(), nil
}
