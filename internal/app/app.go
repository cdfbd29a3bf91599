package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/pubfilter/internal/aggregate"
	"github.com/hyperifyio/pubfilter/internal/batch"
	"github.com/hyperifyio/pubfilter/internal/cache"
	"github.com/hyperifyio/pubfilter/internal/fetch"
	"github.com/hyperifyio/pubfilter/internal/rangefilter"
	"github.com/hyperifyio/pubfilter/internal/resolve"
	"github.com/hyperifyio/pubfilter/internal/search"
	"github.com/hyperifyio/pubfilter/internal/trace"
)

// ErrNoProvider is returned when items must come from a search but no
// provider is configured.
var ErrNoProvider = errors.New("no search provider configured")

type App struct {
	cfg      Config
	rng      rangefilter.Range
	sched    *batch.Scheduler
	provider search.Provider
	stdout   io.Writer
}

// New wires the fetcher, cache and scheduler for cfg. cfg must pass ValidateConfig.
func New(cfg Config) (*App, error) {
	rng, err := rangefilter.ParseRange(cfg.RangeStart, cfg.RangeEnd)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, rng: rng, stdout: os.Stdout}

	var docCache *cache.DocumentCache
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("purged stale cache entries")
			}
		}
		docCache = &cache.DocumentCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}

	client := &fetch.Client{
		HTTPClient:   newFetchHTTPClient(a.policy().Concurrency),
		UserAgent:    cfg.FetchUA,
		Cache:        docCache,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}
	if cfg.HostInterval > 0 {
		client.Limiter = fetch.NewHostLimiter(cfg.HostInterval)
	}
	a.sched = &batch.Scheduler{
		Resolver: &resolve.Resolver{Fetcher: client},
		Sink:     trace.Log{Logger: log.Logger},
	}

	switch {
	case cfg.FileSearchPath != "":
		a.provider = &search.FileProvider{Path: cfg.FileSearchPath}
	case cfg.SearxURL != "":
		a.provider = &search.SearxNG{
			BaseURL:    cfg.SearxURL,
			APIKey:     cfg.SearxKey,
			UserAgent:  cfg.SearxUA,
			TimeRange:  cfg.SearxTimeRange,
			HTTPClient: newSearchHTTPClient(),
		}
	}
	return a, nil
}

func (a *App) policy() batch.Policy {
	p := batch.DefaultPolicy()
	if a.cfg.Concurrency > 0 {
		p.Concurrency = a.cfg.Concurrency
	}
	if a.cfg.OverallDeadline > 0 {
		p.OverallDeadline = a.cfg.OverallDeadline
	}
	if a.cfg.PerRequestTimeout > 0 {
		p.PerRequestTimeout = a.cfg.PerRequestTimeout
	}
	p.Strict = a.cfg.Strict
	return p
}

// Run loads items, filters them by the configured range and writes the kept
// items to the output.
func (a *App) Run(ctx context.Context) error {
	items, err := a.loadItems(ctx)
	if err != nil {
		return err
	}
	p := a.policy()
	log.Info().
		Int("items", len(items)).
		Str("range", a.rng.String()).
		Bool("strict", p.Strict).
		Int("concurrency", p.Concurrency).
		Dur("deadline", p.OverallDeadline).
		Msg("filtering by publication date")

	kept := a.sched.FilterByRange(ctx, search.Pointers(items), a.rng, p)

	if err := a.writeOutput(kept); err != nil {
		return err
	}
	log.Info().Int("kept", len(kept)).Int("dropped", len(items)-len(kept)).Msg("done")
	return nil
}

func (a *App) loadItems(ctx context.Context) ([]search.Result, error) {
	if a.cfg.InputPath != "" {
		items, err := search.LoadResults(a.cfg.InputPath)
		if err != nil {
			return nil, fmt.Errorf("load input: %w", err)
		}
		return items, nil
	}
	if a.provider == nil {
		return nil, ErrNoProvider
	}
	limit := a.cfg.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	queries := a.cfg.Queries
	if len(queries) == 0 {
		queries = []string{""}
	}
	groups := make([][]search.Result, 0, len(queries))
	var lastErr error
	for _, q := range queries {
		results, err := a.provider.Search(ctx, q, limit)
		if err != nil {
			log.Warn().Err(err).Str("query", q).Str("provider", a.provider.Name()).Msg("search error")
			lastErr = err
			continue
		}
		groups = append(groups, results)
	}
	if len(groups) == 0 && lastErr != nil {
		return nil, fmt.Errorf("search %s: %w", a.provider.Name(), lastErr)
	}
	items := aggregate.Merge(groups...)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (a *App) writeOutput(kept []*search.Result) error {
	out := make([]search.Result, 0, len(kept))
	for _, r := range kept {
		out = append(out, *r)
	}
	path := strings.TrimSpace(a.cfg.OutputPath)

	var (
		b   []byte
		err error
	)
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(out)
	default:
		b, err = json.MarshalIndent(out, "", "  ")
		b = append(b, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if path == "" || path == "-" {
		_, err = a.stdout.Write(b)
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Str("out", path).Msg("wrote filtered items")
	return nil
}

// FilterItems filters items with a default fetcher and policy. start and end
// are YYYY-MM-DD; items are enriched in place and dropped items are omitted.
func FilterItems(ctx context.Context, items []*search.Result, start, end string, strict bool) ([]*search.Result, error) {
	rng, err := rangefilter.ParseRange(start, end)
	if err != nil {
		return nil, err
	}
	p := batch.DefaultPolicy()
	p.Strict = strict
	s := &batch.Scheduler{
		Resolver: &resolve.Resolver{Fetcher: &fetch.Client{HTTPClient: newFetchHTTPClient(p.Concurrency)}},
		Sink:     trace.Log{Logger: log.Logger},
	}
	return s.FilterByRange(ctx, items, rng, p), nil
}
