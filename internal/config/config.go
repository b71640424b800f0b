// Package config centralizes environment-variable driven configuration for
// every component the screener wires together: each loader starts from a
// struct literal of defaults, overrides fields from SCREENER_* env vars,
// warns and falls back to the default on a malformed value, and logs the
// resolved config once at startup.
package config

import (
	"errors"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/auth"
	"github.com/Salad109/satellite-conjunction-api/internal/ingestion"
	"github.com/Salad109/satellite-conjunction-api/internal/screening"
	"github.com/Salad109/satellite-conjunction-api/internal/stream"
)

// HTTPAddr returns the address the API server listens on.
func HTTPAddr() string {
	if v := os.Getenv("SCREENER_HTTP_ADDR"); v != "" {
		return v
	}
	return ":8080"
}

// LoadAuthConfig loads bearer-token auth configuration.
func LoadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	if v := os.Getenv("SCREENER_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.New("SCREENER_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("SCREENER_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("SCREENER_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

// LoadScreeningConfig loads the screening pipeline's tunables: shell-overlap
// pair-reduction tolerance, final miss-distance threshold, forward-looking
// window, coarse-sweep time step, and worker fan-out. The default step of 3
// seconds keeps the coarse sweep fine enough relative to a 50 km tolerance
// to catch closing speeds typical of LEO crossings; widening it trades
// sweep cost for a real risk of stepping over a close approach entirely.
func LoadScreeningConfig(logger *slog.Logger) screening.Config {
	cfg := screening.Config{
		ToleranceKm:    50,
		ThresholdKm:    5,
		LookaheadHours: 24,
		StepSeconds:    3,
		Workers:        runtime.NumCPU(),
	}

	if v := os.Getenv("SCREENER_TOLERANCE_KM"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err != nil || n <= 0 {
			logger.Warn("invalid SCREENER_TOLERANCE_KM value, using default", "value", v, "default", cfg.ToleranceKm)
		} else {
			cfg.ToleranceKm = n
		}
	}

	if v := os.Getenv("SCREENER_THRESHOLD_KM"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err != nil || n <= 0 {
			logger.Warn("invalid SCREENER_THRESHOLD_KM value, using default", "value", v, "default", cfg.ThresholdKm)
		} else {
			cfg.ThresholdKm = n
		}
	}

	if v := os.Getenv("SCREENER_LOOKAHEAD_HOURS"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err != nil || n <= 0 {
			logger.Warn("invalid SCREENER_LOOKAHEAD_HOURS value, using default", "value", v, "default", cfg.LookaheadHours)
		} else {
			cfg.LookaheadHours = n
		}
	}

	if v := os.Getenv("SCREENER_STEP_SECONDS"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err != nil || n <= 0 {
			logger.Warn("invalid SCREENER_STEP_SECONDS value, using default", "value", v, "default", cfg.StepSeconds)
		} else {
			cfg.StepSeconds = n
		}
	}

	if v := os.Getenv("SCREENER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SCREENER_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	logger.Info("screening config",
		"tolerance_km", cfg.ToleranceKm,
		"threshold_km", cfg.ThresholdKm,
		"lookahead_hours", cfg.LookaheadHours,
		"step_seconds", cfg.StepSeconds,
		"workers", cfg.Workers,
	)

	return cfg
}

// IngestionConfig bundles what the screener needs to construct an
// ingestion.Fetcher and the on-disk TLE snapshot it keeps, plus the cron
// schedule and batch size ingestion.Service uses.
type IngestionConfig struct {
	SourceURL     string
	ExtraURLs     []string
	CacheDir      string
	MaxCacheFiles int
	BatchSize     int
	ScheduleCron  string
	EnableFetch   bool
}

// LoadIngestionConfig loads catalog sync configuration: upstream TLE
// sources, the on-disk snapshot directory, batch size, and the cron
// schedule the catalog sync runs on. The default cron expression fires at
// 21 minutes past every sixth hour (00:21, 06:21, 12:21, 18:21 UTC), giving
// four catalog refreshes a day spaced evenly around the clock.
func LoadIngestionConfig(logger *slog.Logger) IngestionConfig {
	cfg := IngestionConfig{
		ExtraURLs: []string{
			// ISS (NORAD 25544) — well-documented reference satellite, kept
			// in the feed even if a GROUP query ever excludes it.
			"https://celestrak.org/NORAD/elements/gp.php?CATNR=25544&FORMAT=tle",
		},
		CacheDir:      "/tmp/screener/tle",
		MaxCacheFiles: 5,
		BatchSize:     1000,
		ScheduleCron:  "21 0,6,12,18 * * *",
		EnableFetch:   true,
	}

	if v := os.Getenv("SCREENER_ENABLE_TLE_FETCH"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SCREENER_ENABLE_TLE_FETCH value, defaulting to true", "value", v)
		} else {
			cfg.EnableFetch = enabled
		}
	}

	if v := os.Getenv("SCREENER_TLE_SOURCE_URL"); v != "" {
		cfg.SourceURL = v
	}

	if v := os.Getenv("SCREENER_TLE_EXTRA_URLS"); v != "" {
		var urls []string
		for _, u := range strings.Split(v, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				urls = append(urls, u)
			}
		}
		cfg.ExtraURLs = urls
	}

	if v := os.Getenv("SCREENER_TLE_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}

	if v := os.Getenv("SCREENER_TLE_CACHE_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SCREENER_TLE_CACHE_MAX_FILES value, using default", "value", v, "default", cfg.MaxCacheFiles)
		} else {
			cfg.MaxCacheFiles = n
		}
	}

	if v := os.Getenv("SCREENER_INGESTION_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SCREENER_INGESTION_BATCH_SIZE value, using default", "value", v, "default", cfg.BatchSize)
		} else {
			cfg.BatchSize = n
		}
	}

	if v := os.Getenv("SCREENER_INGESTION_SCHEDULE_CRON"); v != "" {
		cfg.ScheduleCron = v
	}

	logger.Info("ingestion config",
		"source_url", cfg.SourceURL,
		"extra_urls", cfg.ExtraURLs,
		"cache_dir", cfg.CacheDir,
		"max_cache_files", cfg.MaxCacheFiles,
		"batch_size", cfg.BatchSize,
		"schedule_cron", cfg.ScheduleCron,
		"enable_fetch", cfg.EnableFetch,
	)

	return cfg
}

// NewFetcher builds an ingestion.Fetcher from the resolved config, applying
// the default source URL when none was set via environment.
func (c IngestionConfig) NewFetcher(logger *slog.Logger) *ingestion.Fetcher {
	return ingestion.NewFetcher(c.SourceURL, logger, c.ExtraURLs...)
}

// LoadStreamConfig loads the conjunction SSE stream's connection limits.
func LoadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		MaxConcurrentTotal: 1000,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("SCREENER_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SCREENER_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("SCREENER_STREAM_MAX_CONCURRENT_TOTAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SCREENER_STREAM_MAX_CONCURRENT_TOTAL value, using default", "value", v, "default", 1000)
		} else {
			cfg.MaxConcurrentTotal = n
		}
	}

	if v := os.Getenv("SCREENER_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SCREENER_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"max_concurrent_total", cfg.MaxConcurrentTotal,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
	)

	return cfg
}
