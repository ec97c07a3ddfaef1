// Package cities reads the static city reference list (OpenWeatherMap's
// city.list.json format).
package cities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/i474232898/weatheriq/internal/weather"
)

// DefaultLimit bounds how many cities a run ingests.
const DefaultLimit = 50

// FileSource loads cities from a JSON array on disk.
type FileSource struct {
	path  string
	limit int
}

// NewFileSource returns a source reading at most limit cities from path.
// A non-positive limit means no bound.
func NewFileSource(path string, limit int) *FileSource {
	return &FileSource{path: path, limit: limit}
}

// Cities reads the file on every call so edits are picked up by the next run.
func (s *FileSource) Cities(ctx context.Context) ([]weather.CityRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open city list %s: %w", s.path, err)
	}
	defer f.Close()

	return Decode(f, s.limit)
}

// Decode parses a city list and returns its first limit entries. Entries
// without an id or name are rejected.
func Decode(r io.Reader, limit int) ([]weather.CityRef, error) {
	var all []weather.CityRef
	if err := json.NewDecoder(r).Decode(&all); err != nil {
		return nil, fmt.Errorf("parse city list: %w", err)
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	for i, c := range all {
		if c.ID == 0 || c.Name == "" {
			return nil, fmt.Errorf("city list entry %d: %w", i, errInvalidEntry)
		}
	}
	return all, nil
}

var errInvalidEntry = errors.New("id and name are required")

var _ weather.CitySource = (*FileSource)(nil)
