package search

import (
	"context"
	"fmt"
	"strings"
)

// DateSource records where an item's publication date came from. It is set by
// the resolver, never by providers or callers.
type DateSource int

const (
	DateSourceNone DateSource = iota
	DateSourceProvided
	DateSourceScraped
	DateSourceUnknown
)

func (s DateSource) String() string {
	switch s {
	case DateSourceProvided:
		return "provided"
	case DateSourceScraped:
		return "scraped"
	case DateSourceUnknown:
		return "unknown"
	default:
		return "none"
	}
}

func (s DateSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DateSource) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "none":
		*s = DateSourceNone
	case "provided":
		*s = DateSourceProvided
	case "scraped":
		*s = DateSourceScraped
	case "unknown":
		*s = DateSourceUnknown
	default:
		return fmt.Errorf("unknown date source %q", string(b))
	}
	return nil
}

// Result represents a single search hit from any provider.
//
// PublishedDate is whatever the provider supplied and is not trusted until it
// parses. Once DateSource is DateSourceScraped it holds a YYYY-MM-DD date.
type Result struct {
	Title         string     `json:"title" yaml:"title"`
	URL           string     `json:"url" yaml:"url"`
	Snippet       string     `json:"snippet,omitempty" yaml:"snippet,omitempty"`
	PublishedDate string     `json:"published_date,omitempty" yaml:"published_date,omitempty"`
	DateSource    DateSource `json:"date_source" yaml:"date_source,omitempty"`
	Source        string     `json:"source,omitempty" yaml:"source,omitempty"` // provider name for observability
}

// Provider is a minimal interface for search providers.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// Pointers returns stable pointers into results so that callers can hand the
// same objects to the filter more than once.
func Pointers(results []Result) []*Result {
	out := make([]*Result, len(results))
	for i := range results {
		out[i] = &results[i]
	}
	return out
}
