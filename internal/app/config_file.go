package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/pubfilter/internal/batch"
	"github.com/hyperifyio/pubfilter/internal/rangefilter"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to the dotted flag names.
type FileConfig struct {
	Input  string `yaml:"input" json:"input"`
	Output string `yaml:"output" json:"output"`
	Query   string   `yaml:"query" json:"query"`
	Queries []string `yaml:"queries" json:"queries"`

	Searx struct {
		URL       string `yaml:"url" json:"url"`
		Key       string `yaml:"key" json:"key"`
		UA        string `yaml:"ua" json:"ua"`
		TimeRange string `yaml:"timeRange" json:"timeRange"`
	} `yaml:"searx" json:"searx"`

	Search struct {
		File string `yaml:"file" json:"file"`
	} `yaml:"search" json:"search"`

	Max struct {
		Results int `yaml:"results" json:"results"`
	} `yaml:"max" json:"max"`

	Range struct {
		Start string `yaml:"start" json:"start"`
		End   string `yaml:"end" json:"end"`
	} `yaml:"range" json:"range"`

	Strict bool `yaml:"strict" json:"strict"`

	Batch struct {
		Concurrency int           `yaml:"concurrency" json:"concurrency"`
		Deadline    time.Duration `yaml:"deadline" json:"deadline"`
		PerRequest  time.Duration `yaml:"perRequest" json:"perRequest"`
	} `yaml:"batch" json:"batch"`

	Fetch struct {
		UA           string        `yaml:"ua" json:"ua"`
		MaxBody      int64         `yaml:"maxBody" json:"maxBody"`
		HostInterval time.Duration `yaml:"hostInterval" json:"hostInterval"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still at their flag default. Flags should already
// have been parsed; this lets file config supply defaults while preserving
// explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.InputPath == DefaultInputPath && fc.Input != "" {
		cfg.InputPath = fc.Input
	}
	if (cfg.OutputPath == "" || cfg.OutputPath == DefaultOutputPath) && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if len(cfg.Queries) == 0 {
		if fc.Query != "" {
			cfg.Queries = append(cfg.Queries, fc.Query)
		}
		cfg.Queries = append(cfg.Queries, fc.Queries...)
	}

	if cfg.SearxURL == "" && fc.Searx.URL != "" {
		cfg.SearxURL = fc.Searx.URL
	}
	if cfg.SearxKey == "" && fc.Searx.Key != "" {
		cfg.SearxKey = fc.Searx.Key
	}
	if (cfg.SearxUA == "" || cfg.SearxUA == DefaultSearxUA) && fc.Searx.UA != "" {
		cfg.SearxUA = fc.Searx.UA
	}
	if cfg.SearxTimeRange == "" && fc.Searx.TimeRange != "" {
		cfg.SearxTimeRange = fc.Searx.TimeRange
	}
	if cfg.FileSearchPath == "" && fc.Search.File != "" {
		cfg.FileSearchPath = fc.Search.File
	}
	if (cfg.MaxResults == 0 || cfg.MaxResults == DefaultMaxResults) && fc.Max.Results > 0 {
		cfg.MaxResults = fc.Max.Results
	}

	if cfg.RangeStart == "" && fc.Range.Start != "" {
		cfg.RangeStart = fc.Range.Start
	}
	if cfg.RangeEnd == "" && fc.Range.End != "" {
		cfg.RangeEnd = fc.Range.End
	}
	if !cfg.Strict && fc.Strict {
		cfg.Strict = true
	}

	if (cfg.Concurrency == 0 || cfg.Concurrency == batch.DefaultConcurrency) && fc.Batch.Concurrency > 0 {
		cfg.Concurrency = fc.Batch.Concurrency
	}
	if (cfg.OverallDeadline == 0 || cfg.OverallDeadline == batch.DefaultOverallDeadline) && fc.Batch.Deadline > 0 {
		cfg.OverallDeadline = fc.Batch.Deadline
	}
	if (cfg.PerRequestTimeout == 0 || cfg.PerRequestTimeout == batch.DefaultPerRequestTimeout) && fc.Batch.PerRequest > 0 {
		cfg.PerRequestTimeout = fc.Batch.PerRequest
	}

	if cfg.FetchUA == "" && fc.Fetch.UA != "" {
		cfg.FetchUA = fc.Fetch.UA
	}
	if cfg.MaxBodyBytes == 0 && fc.Fetch.MaxBody > 0 {
		cfg.MaxBodyBytes = fc.Fetch.MaxBody
	}
	if cfg.HostInterval == DefaultHostInterval && fc.Fetch.HostInterval > 0 {
		cfg.HostInterval = fc.Fetch.HostInterval
	}

	if cfg.CacheDir == DefaultCacheDir && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig checks required settings. The range must parse; an inverted
// range is accepted as given.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.RangeStart) == "" || strings.TrimSpace(cfg.RangeEnd) == "" {
		return errors.New("config: range.start and range.end are required")
	}
	if _, err := rangefilter.ParseRange(cfg.RangeStart, cfg.RangeEnd); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if strings.TrimSpace(cfg.InputPath) == "" && len(cfg.Queries) == 0 {
		return errors.New("config: either input or query is required")
	}
	if strings.TrimSpace(cfg.InputPath) == "" && cfg.SearxURL == "" && cfg.FileSearchPath == "" {
		return errors.New("config: query needs searx.url or search.file")
	}
	if cfg.Concurrency < 0 || cfg.OverallDeadline < 0 || cfg.PerRequestTimeout < 0 || cfg.MaxResults < 0 || cfg.MaxBodyBytes < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	return nil
}
