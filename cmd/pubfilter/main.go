package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pubfilter/internal/app"
	"github.com/hyperifyio/pubfilter/internal/batch"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		cfg        app.Config
		configPath string
		envFiles   stringList
	)

	flag.StringVar(&configPath, "config", os.Getenv("PUBFILTER_CONFIG"), "Path to YAML or JSON config file")
	flag.Var(&envFiles, "env", "Dotenv file to load before reading the environment (repeatable; default .env)")
	flag.StringVar(&cfg.InputPath, "input", app.DefaultInputPath, "JSON or YAML file with items to filter; empty runs a search instead")
	flag.StringVar(&cfg.OutputPath, "output", app.DefaultOutputPath, "Where to write kept items (.json or .yaml); - for stdout")
	flag.Var((*stringList)(&cfg.Queries), "query", "Search query used when no input file is given (repeatable)")
	flag.StringVar(&cfg.SearxURL, "searx.url", "", "SearxNG base URL")
	flag.StringVar(&cfg.SearxKey, "searx.key", "", "SearxNG API key (optional)")
	flag.StringVar(&cfg.SearxUA, "searx.ua", app.DefaultSearxUA, "Custom User-Agent for SearxNG requests")
	flag.StringVar(&cfg.SearxTimeRange, "searx.timeRange", "", "Coarse provider-side time range: day, month or year")
	flag.StringVar(&cfg.FileSearchPath, "search.file", "", "Path to JSON or YAML file for the offline file-based search provider")
	flag.IntVar(&cfg.MaxResults, "max.results", app.DefaultMaxResults, "Maximum search results to filter")
	flag.StringVar(&cfg.RangeStart, "range.start", "", "First publication date to keep (YYYY-MM-DD)")
	flag.StringVar(&cfg.RangeEnd, "range.end", "", "Last publication date to keep (YYYY-MM-DD)")
	flag.BoolVar(&cfg.Strict, "strict", false, "Drop items whose publication date cannot be determined")
	flag.IntVar(&cfg.Concurrency, "batch.concurrency", batch.DefaultConcurrency, "Fetches per wave")
	flag.DurationVar(&cfg.OverallDeadline, "batch.deadline", batch.DefaultOverallDeadline, "Overall time budget for all fetches")
	flag.DurationVar(&cfg.PerRequestTimeout, "batch.perRequest", batch.DefaultPerRequestTimeout, "Timeout of a single fetch, clamped to the remaining budget")
	flag.StringVar(&cfg.FetchUA, "fetch.ua", "", "User-Agent for document fetches")
	flag.Int64Var(&cfg.MaxBodyBytes, "fetch.maxBody", 0, "Maximum bytes read per document (0 uses the fetcher default)")
	flag.DurationVar(&cfg.HostInterval, "fetch.hostInterval", app.DefaultHostInterval, "Minimum spacing between requests to one host (0 disables)")
	flag.StringVar(&cfg.CacheDir, "cache.dir", app.DefaultCacheDir, "Document cache directory (empty disables)")
	flag.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	flag.BoolVar(&cfg.CacheClear, "cache.clear", false, "Clear cache directory before run")
	flag.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	flag.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	flag.Parse()

	if len(envFiles) == 0 {
		envFiles = stringList{".env"}
	}
	if err := app.LoadEnvFiles(envFiles...); err != nil {
		log.Fatal().Err(err).Msg("load env files")
	}

	// Precedence: flags > env > file > defaults.
	flagCfg := cfg
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("load config file")
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	flag.Visit(func(f *flag.Flag) { restoreFlag(&cfg, flagCfg, f.Name) })

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := app.ValidateConfig(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return a.Run(ctx)
}
