package source

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed matches every FetchError.
	ErrFetchFailed = errors.New("source fetch failed")
	// ErrOutsideRoot rejects a file location that leaves a confined root.
	ErrOutsideRoot = errors.New("location outside source root")
	// ErrUnsupportedLocation rejects a location no fetcher is routed for.
	ErrUnsupportedLocation = errors.New("unsupported source location")
)

// FetchError describes why a location could not be loaded. Status is the
// HTTP status when the server answered, zero otherwise.
type FetchError struct {
	Location string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.Location, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Location, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }
