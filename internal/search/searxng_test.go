package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearxNG_Search_ParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Doc", "url": "https://example.com", "content": "snippet", "publishedDate": "2025-07-23T08:00:00"},
				{"title": "Bad", "url": "", "content": "no url"},
				{"title": "Undated", "url": "https://example.org", "content": "x", "publishedDate": nil},
			},
		})
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client()}
	got, err := s.Search(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 valid results, got %d", len(got))
	}
	if got[0].URL != "https://example.com" {
		t.Fatalf("unexpected url: %q", got[0].URL)
	}
	if got[0].PublishedDate != "2025-07-23T08:00:00" {
		t.Fatalf("expected provider date passed through, got %q", got[0].PublishedDate)
	}
	if got[1].PublishedDate != "" {
		t.Fatalf("expected empty date for null, got %q", got[1].PublishedDate)
	}
	if got[0].DateSource != DateSourceNone {
		t.Fatalf("providers must not set date source, got %v", got[0].DateSource)
	}
}

func TestSearxNG_Search_ForwardsTimeRange(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.URL.Query().Get("time_range")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client(), TimeRange: "month"}
	if _, err := s.Search(context.Background(), "q", 3); err != nil {
		t.Fatalf("search error: %v", err)
	}
	if gotRange != "month" {
		t.Fatalf("expected time_range=month, got %q", gotRange)
	}
}

func TestSearxNG_Search_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client()}
	if _, err := s.Search(context.Background(), "q", 3); err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestDateSource_TextRoundTrip(t *testing.T) {
	b, err := json.Marshal(Result{Title: "t", URL: "u", DateSource: DateSourceScraped})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var r Result
	if err := json.Unmarshal(b, &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.DateSource != DateSourceScraped {
		t.Fatalf("expected scraped, got %v", r.DateSource)
	}
	var ds DateSource
	if err := ds.UnmarshalText([]byte("bogus")); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}
