package source

import (
	"context"
	"strings"

	"github.com/locvowork/sheet_aggregator/internal/domain"
)

// MultiFetcher routes a location to a fetcher by its URL scheme.
// Locations without a registered scheme go to the fallback; a nil
// fallback rejects them.
type MultiFetcher struct {
	schemes  map[string]domain.Fetcher
	fallback domain.Fetcher
}

func NewMultiFetcher(fallback domain.Fetcher) *MultiFetcher {
	return &MultiFetcher{schemes: make(map[string]domain.Fetcher), fallback: fallback}
}

// Register routes scheme (without "://") to f.
func (m *MultiFetcher) Register(scheme string, f domain.Fetcher) *MultiFetcher {
	m.schemes[strings.ToLower(scheme)] = f
	return m
}

func (m *MultiFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if scheme, _, ok := strings.Cut(location, "://"); ok {
		if f, found := m.schemes[strings.ToLower(scheme)]; found {
			return f.Fetch(ctx, location)
		}
	}
	if m.fallback == nil {
		return nil, &FetchError{Location: location, Err: ErrUnsupportedLocation}
	}
	return m.fallback.Fetch(ctx, location)
}
