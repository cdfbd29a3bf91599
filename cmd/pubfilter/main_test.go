package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperifyio/pubfilter/internal/app"
	"github.com/hyperifyio/pubfilter/internal/search"
)

// Smoke test: run filters an input file and writes the kept items.
func TestRun_WritesOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><meta name="pubdate" content="2024-04-01"></head></html>`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := filepath.Join(dir, "items.json")
	out := filepath.Join(dir, "kept.json")
	items := `[{"title":"a","url":"` + srv.URL + `/a"},{"title":"b","url":"` + srv.URL + `/b","published_date":"2010-01-01"}]`
	if err := os.WriteFile(in, []byte(items), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	cfg := app.Config{InputPath: in, OutputPath: out, RangeStart: "2024-01-01", RangeEnd: "2024-12-31"}
	if err := run(cfg); err != nil {
		t.Fatalf("run error: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var kept []search.Result
	if err := json.Unmarshal(b, &kept); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(kept) != 1 || kept[0].Title != "a" || kept[0].PublishedDate != "2024-04-01" {
		t.Fatalf("unexpected output: %+v", kept)
	}
}

func TestRestoreFlag(t *testing.T) {
	flags := app.Config{RangeEnd: "2024-12-31", Strict: false, Concurrency: 2}
	cfg := app.Config{RangeEnd: "2030-01-01", Strict: true, Concurrency: 9}
	restoreFlag(&cfg, flags, "range.end")
	restoreFlag(&cfg, flags, "strict")
	if cfg.RangeEnd != "2024-12-31" || cfg.Strict || cfg.Concurrency != 9 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestStringList(t *testing.T) {
	var s stringList
	_ = s.Set(".env")
	_ = s.Set(".env.local")
	if s.String() != ".env,.env.local" {
		t.Fatalf("got %q", s.String())
	}
}
