package app

import "time"

// Defaults shared by flag definitions and file/env merging. A field still at
// its default may be replaced by a config file value.
const (
	DefaultInputPath    = ""
	DefaultOutputPath   = "-"
	DefaultSearxUA      = "pubfilter/1.0 (+https://github.com/hyperifyio/pubfilter)"
	DefaultMaxResults   = 20
	DefaultCacheDir     = ""
	DefaultHostInterval = 0
)

// Config holds runtime configuration for the application.
type Config struct {
	// InputPath is a JSON or YAML item list. When empty, items come from a
	// search provider using Query.
	InputPath string
	// OutputPath receives the kept items as JSON, or YAML for .yaml/.yml.
	// "-" or empty writes to stdout.
	OutputPath string

	// Search
	// Queries are searched in order; their results are merged and de-duplicated.
	Queries        []string
	SearxURL       string
	SearxKey       string
	SearxUA        string
	SearxTimeRange string
	FileSearchPath string
	MaxResults     int

	// Range and policy
	RangeStart        string
	RangeEnd          string
	Strict            bool
	Concurrency       int
	OverallDeadline   time.Duration
	PerRequestTimeout time.Duration

	// Fetching
	FetchUA      string
	MaxBodyBytes int64
	HostInterval time.Duration

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	Verbose bool
}
