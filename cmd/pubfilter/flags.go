package main

import (
	"strings"

	"github.com/hyperifyio/pubfilter/internal/app"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// restoreFlag copies an explicitly set flag value back over whatever the
// config file or environment put there.
func restoreFlag(cfg *app.Config, flags app.Config, name string) {
	switch name {
	case "input":
		cfg.InputPath = flags.InputPath
	case "output":
		cfg.OutputPath = flags.OutputPath
	case "query":
		cfg.Queries = flags.Queries
	case "searx.url":
		cfg.SearxURL = flags.SearxURL
	case "searx.key":
		cfg.SearxKey = flags.SearxKey
	case "searx.ua":
		cfg.SearxUA = flags.SearxUA
	case "searx.timeRange":
		cfg.SearxTimeRange = flags.SearxTimeRange
	case "search.file":
		cfg.FileSearchPath = flags.FileSearchPath
	case "max.results":
		cfg.MaxResults = flags.MaxResults
	case "range.start":
		cfg.RangeStart = flags.RangeStart
	case "range.end":
		cfg.RangeEnd = flags.RangeEnd
	case "strict":
		cfg.Strict = flags.Strict
	case "batch.concurrency":
		cfg.Concurrency = flags.Concurrency
	case "batch.deadline":
		cfg.OverallDeadline = flags.OverallDeadline
	case "batch.perRequest":
		cfg.PerRequestTimeout = flags.PerRequestTimeout
	case "fetch.ua":
		cfg.FetchUA = flags.FetchUA
	case "fetch.maxBody":
		cfg.MaxBodyBytes = flags.MaxBodyBytes
	case "fetch.hostInterval":
		cfg.HostInterval = flags.HostInterval
	case "cache.dir":
		cfg.CacheDir = flags.CacheDir
	case "cache.maxAge":
		cfg.CacheMaxAge = flags.CacheMaxAge
	case "cache.clear":
		cfg.CacheClear = flags.CacheClear
	case "cache.strictPerms":
		cfg.CacheStrictPerms = flags.CacheStrictPerms
	case "v":
		cfg.Verbose = flags.Verbose
	}
}
