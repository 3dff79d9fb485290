package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// FileFetcher reads sources from the local file system. Relative paths
// resolve against Root. A Confined fetcher only opens files inside Root,
// after resolving ".." and symbolic links.
type FileFetcher struct {
	Root     string
	Confined bool
	MaxBytes int64
}

func (f FileFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Location: location, Err: err}
	}
	path, err := f.resolve(strings.TrimPrefix(location, "file://"))
	if err != nil {
		return nil, &FetchError{Location: location, Err: err}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, &FetchError{Location: location, Err: err}
	}
	defer file.Close()
	return readLimited(location, file, f.MaxBytes)
}

func (f FileFetcher) resolve(path string) (string, error) {
	if !f.Confined {
		if !filepath.IsAbs(path) && f.Root != "" {
			path = filepath.Join(f.Root, path)
		}
		return path, nil
	}
	if f.Root == "" {
		return "", ErrOutsideRoot
	}
	root, err := filepath.Abs(f.Root)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	if !within(root, path) {
		return "", ErrOutsideRoot
	}
	// a link inside root may still point elsewhere
	if real, err := filepath.EvalSymlinks(path); err == nil {
		realRoot, err := filepath.EvalSymlinks(root)
		if err != nil || !within(realRoot, real) {
			return "", ErrOutsideRoot
		}
		path = real
	}
	return path, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
