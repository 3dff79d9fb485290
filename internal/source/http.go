package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrTooLarge is wrapped when a body exceeds the configured limit.
var ErrTooLarge = errors.New("response body too large")

// HTTPFetcher downloads sources over HTTP. Relative locations are joined
// to the base URL.
type HTTPFetcher struct {
	client   *http.Client
	baseURL  string
	timeout  time.Duration
	maxBytes int64
}

func NewHTTPFetcher(baseURL string, timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

// URL resolves location against the base URL.
func (f *HTTPFetcher) URL(location string) string {
	if isHTTP(location) || f.baseURL == "" {
		return location
	}
	return f.baseURL + "/" + strings.TrimLeft(location, "/")
}

func (f *HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	url := f.URL(location)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Location: location, Err: err}
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Location: location, Err: err}
	}
	defer resp.Body.Close()

	zerolog.Ctx(ctx).Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("fetched source")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Location: location, Status: resp.StatusCode}
	}
	return readLimited(location, resp.Body, f.maxBytes)
}

func readLimited(location string, r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, &FetchError{Location: location, Err: err}
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, &FetchError{Location: location, Err: err}
	}
	if int64(len(data)) > max {
		return nil, &FetchError{Location: location, Err: fmt.Errorf("%w: limit %d bytes", ErrTooLarge, max)}
	}
	return data, nil
}

func isHTTP(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
