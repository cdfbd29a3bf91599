package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	// Support both SEARX_* and SEARXNG_*; prefer SEARX_* if set
	setString(&cfg.SearxURL, "SEARX_URL", "SEARXNG_URL")
	setString(&cfg.SearxKey, "SEARX_KEY", "SEARXNG_KEY")
	setString(&cfg.FileSearchPath, "SEARCH_FILE")
	setString(&cfg.RangeStart, "RANGE_START")
	setString(&cfg.RangeEnd, "RANGE_END")
	setString(&cfg.FetchUA, "FETCH_UA")
	setString(&cfg.CacheDir, "CACHE_DIR")

	setDuration := func(dst *time.Duration, key string) {
		if *dst != 0 {
			return
		}
		if d, ok := envDuration(key); ok {
			*dst = d
		}
	}
	setDuration(&cfg.OverallDeadline, "BATCH_DEADLINE")
	setDuration(&cfg.PerRequestTimeout, "BATCH_PER_REQUEST")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	setDuration(&cfg.HostInterval, "FETCH_HOST_INTERVAL")

	if cfg.Concurrency == 0 {
		if n, ok := envInt("BATCH_CONCURRENCY"); ok {
			cfg.Concurrency = n
		}
	}

	setBool := func(dst *bool, key string) {
		if *dst {
			return
		}
		if v, ok := envBool(key); ok && v {
			*dst = true
		}
	}
	setBool(&cfg.Strict, "STRICT")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This lets env take precedence over
// values coming from a config file while flags remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&cfg.SearxURL, "SEARX_URL")
	override(&cfg.SearxURL, "SEARXNG_URL")
	override(&cfg.SearxKey, "SEARX_KEY")
	override(&cfg.SearxKey, "SEARXNG_KEY")
	override(&cfg.FileSearchPath, "SEARCH_FILE")
	override(&cfg.RangeStart, "RANGE_START")
	override(&cfg.RangeEnd, "RANGE_END")
	override(&cfg.FetchUA, "FETCH_UA")
	override(&cfg.CacheDir, "CACHE_DIR")

	for key, dst := range map[string]*time.Duration{
		"BATCH_DEADLINE":      &cfg.OverallDeadline,
		"BATCH_PER_REQUEST":   &cfg.PerRequestTimeout,
		"CACHE_MAX_AGE":       &cfg.CacheMaxAge,
		"FETCH_HOST_INTERVAL": &cfg.HostInterval,
	} {
		if d, ok := envDuration(key); ok {
			*dst = d
		}
	}
	if n, ok := envInt("BATCH_CONCURRENCY"); ok {
		cfg.Concurrency = n
	}

	// Booleans override when env present and truthy/falsey
	for key, dst := range map[string]*bool{
		"STRICT":             &cfg.Strict,
		"VERBOSE":            &cfg.Verbose,
		"CACHE_CLEAR":        &cfg.CacheClear,
		"CACHE_STRICT_PERMS": &cfg.CacheStrictPerms,
	} {
		if v, ok := envBool(key); ok {
			*dst = v
		}
	}
}

func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

func envInt(key string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
