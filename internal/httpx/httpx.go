package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var ErrNetwork = errors.New("network error")

// UserAgentTransport sets a fixed User-Agent on every outgoing request.
type UserAgentTransport struct {
	UserAgent string
	Base      http.RoundTripper
}

func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.UserAgent)

	return base.RoundTrip(req)
}

// NewClient returns a client that identifies itself with userAgent.
func NewClient(userAgent string) *http.Client {
	return &http.Client{
		Transport: &UserAgentTransport{UserAgent: userAgent},
	}
}

// Get performs a GET with the given Accept header. A non-200 response is an error wrapping ErrNetwork.
// The caller owns the body of a successful response.
func Get(ctx context.Context, client *http.Client, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrNetwork, url, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: get %s: unexpected status: %s", ErrNetwork, url, resp.Status)
	}

	return resp, nil
}
