// Package aggregate merges result lists from several searches before they are
// filtered. The filtering engine itself never de-duplicates; this is the
// CLI's job as its caller.
package aggregate

import (
	"net/url"
	"strings"

	"github.com/hyperifyio/pubfilter/internal/pubdate"
	"github.com/hyperifyio/pubfilter/internal/search"
)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"}

// Merge concatenates groups in order, canonicalizes URLs and collapses exact
// duplicates. The first occurrence wins, except that a duplicate carrying a
// parseable provider date (or a snippet) fills the gap when the first lacks one.
func Merge(groups ...[]search.Result) []search.Result {
	index := map[string]int{}
	out := make([]search.Result, 0, 64)
	for _, g := range groups {
		for _, r := range g {
			key, ok := Canonical(r.URL)
			if !ok {
				continue
			}
			if i, dup := index[key]; dup {
				fillGaps(&out[i], r)
				continue
			}
			index[key] = len(out)
			r.URL = key
			out = append(out, r)
		}
	}
	return out
}

func fillGaps(kept *search.Result, dup search.Result) {
	if _, ok := pubdate.ParseDate(kept.PublishedDate); !ok {
		if _, ok := pubdate.ParseDate(dup.PublishedDate); ok {
			kept.PublishedDate = dup.PublishedDate
		}
	}
	if strings.TrimSpace(kept.Snippet) == "" {
		kept.Snippet = dup.Snippet
	}
}

// Canonical lowercases the host and drops the fragment, default ports and
// common tracking parameters. Only http and https URLs are accepted.
func Canonical(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return "", false
	}
	u.Scheme = scheme
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	if (scheme == "http" && u.Port() == "80") || (scheme == "https" && u.Port() == "443") {
		u.Host = u.Hostname()
	}
	q := u.Query()
	for _, p := range trackingParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	return u.String(), true
}
