package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// FileProvider loads search results from a local JSON or YAML file for offline
// use. The file is an array of objects:
// {"title": "...", "url": "...", "snippet": "...", "published_date": "..."}.
type FileProvider struct {
	Path string
}

func (f *FileProvider) Name() string { return "file" }

func (f *FileProvider) Search(_ context.Context, query string, limit int) ([]Result, error) {
	raw, err := LoadResults(f.Path)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Result, 0, len(raw))
	for _, r := range raw {
		if q == "" || strings.Contains(strings.ToLower(r.Title), q) || strings.Contains(strings.ToLower(r.Snippet), q) {
			r.Source = f.Name()
			out = append(out, r)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// LoadResults reads an item list from path. Entries without a URL or title are
// dropped; any date_source present in the file is ignored because provenance
// is only ever assigned by the resolver.
func LoadResults(path string) ([]Result, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("results path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []Result
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	out := raw[:0]
	for _, r := range raw {
		if r.URL == "" || r.Title == "" {
			continue
		}
		r.DateSource = DateSourceNone
		out = append(out, r)
	}
	return out, nil
}
