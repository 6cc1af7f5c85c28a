package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrLoad is wrapped by every loader failure.
	ErrLoad = errors.New("catalog load failed")

	// ErrCatalogNotFound indicates the backing source holds no catalog.
	ErrCatalogNotFound = errors.New("catalog not found")
)

// Loader supplies the full catalog on demand. Implementations must be safe
// for concurrent use and free of side effects per call.
type Loader interface {
	LoadAll(ctx context.Context) ([]Item, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ctx context.Context) ([]Item, error)

// LoadAll calls f(ctx).
func (f LoaderFunc) LoadAll(ctx context.Context) ([]Item, error) {
	return f(ctx)
}

// FileLoader reads a JSON array of items from a file on every call.
type FileLoader struct {
	path string
}

// NewFileLoader creates a loader for the JSON catalog at path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// LoadAll reads and decodes the catalog file.
func (l *FileLoader) LoadAll(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w: %s", ErrLoad, ErrCatalogNotFound, l.path)
		}
		return nil, fmt.Errorf("%w: read %q: %v", ErrLoad, l.path, err)
	}

	return decodeItems(data)
}

// decodeItems parses a JSON array of items.
func decodeItems(data []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: decode items: %v", ErrLoad, err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}
