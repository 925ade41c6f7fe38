package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Port        string
	MetricsPort string
	DBPath      string
	RedisAddr   string
	RedisDB     int

	Vendor    VendorConfig
	RateLimit RateLimitConfig
	Sync      SyncConfig
	Position  PositionConfig
}

// VendorConfig holds the tracking-platform API settings
type VendorConfig struct {
	BaseURL string
	Token   string

	// The vendor formats window parameters in its own fixed zone; storage is
	// always UTC and DisplayUTCOffsetHours only affects formatted output.
	VendorUTCOffsetHours  int
	DisplayUTCOffsetHours int

	TimeoutSeconds int
}

// RateLimitConfig governs the shared vendor call budget
type RateLimitConfig struct {
	MaxCallsPerSecond int
	BurstWindow       time.Duration
	BackoffBase       time.Duration
	BackoffCap        time.Duration
	RateLimitRetries  int
	TransientRetries  int
	TransientBackoff  time.Duration
}

// SyncConfig governs the incremental trip sync engine
type SyncConfig struct {
	Devices             []string // static fleet list; checkpoints add to it
	Interval            time.Duration
	FullLookbackDays    int
	StaleRunningTimeout time.Duration
	BackfillWindow      time.Duration
	EventCooldown       time.Duration
}

// PositionConfig governs the position store write policy
type PositionConfig struct {
	MinMoveMeters         float64
	MinInterval           time.Duration
	StationaryMinInterval time.Duration
}

// Load 加载配置: optional YAML file first, environment variables override
func Load() *Config {
	cfg := defaults()

	if path := os.Getenv("FLEETSYNC_CONFIG"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			fmt.Fprintf(os.Stderr, "config file %s: %v\n", path, err)
		}
	}

	applyEnv(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		Port:        ":8080",
		MetricsPort: "9100",
		DBPath:      "./data/fleetsync.db",
		RedisAddr:   "localhost:6379",
		Vendor: VendorConfig{
			BaseURL:               "https://api.example-tracking.com/openapi",
			VendorUTCOffsetHours:  8,
			DisplayUTCOffsetHours: 0,
			TimeoutSeconds:        15,
		},
		RateLimit: RateLimitConfig{
			MaxCallsPerSecond: 5,
			BurstWindow:       2 * time.Second,
			BackoffBase:       2 * time.Second,
			BackoffCap:        5 * time.Minute,
			RateLimitRetries:  3,
			TransientRetries:  3,
			TransientBackoff:  500 * time.Millisecond,
		},
		Sync: SyncConfig{
			Interval:            10 * time.Minute,
			FullLookbackDays:    30,
			StaleRunningTimeout: 30 * time.Minute,
			BackfillWindow:      15 * time.Minute,
			EventCooldown:       5 * time.Minute,
		},
		Position: PositionConfig{
			MinMoveMeters:         15,
			MinInterval:           time.Minute,
			StationaryMinInterval: 10 * time.Minute,
		},
	}
}

// fileConfig mirrors the YAML layout. Durations are "10m" style strings and
// every field is optional; absent keys keep the defaults.
type fileConfig struct {
	Port        *string `yaml:"port"`
	MetricsPort *string `yaml:"metrics_port"`
	DBPath      *string `yaml:"db_path"`
	RedisAddr   *string `yaml:"redis_addr"`
	RedisDB     *int    `yaml:"redis_db"`

	Vendor struct {
		BaseURL               *string `yaml:"base_url"`
		Token                 *string `yaml:"token"`
		VendorUTCOffsetHours  *int    `yaml:"vendor_utc_offset_hours"`
		DisplayUTCOffsetHours *int    `yaml:"display_utc_offset_hours"`
		TimeoutSeconds        *int    `yaml:"timeout_seconds"`
	} `yaml:"vendor"`

	RateLimit struct {
		MaxCallsPerSecond *int    `yaml:"max_calls_per_second"`
		BurstWindow       *string `yaml:"burst_window"`
		BackoffBase       *string `yaml:"backoff_base"`
		BackoffCap        *string `yaml:"backoff_cap"`
		RateLimitRetries  *int    `yaml:"rate_limit_retries"`
		TransientRetries  *int    `yaml:"transient_retries"`
		TransientBackoff  *string `yaml:"transient_backoff"`
	} `yaml:"rate_limit"`

	Sync struct {
		Devices             []string `yaml:"devices"`
		Interval            *string  `yaml:"interval"`
		FullLookbackDays    *int     `yaml:"full_lookback_days"`
		StaleRunningTimeout *string  `yaml:"stale_running_timeout"`
		BackfillWindow      *string  `yaml:"backfill_window"`
		EventCooldown       *string  `yaml:"event_cooldown"`
	} `yaml:"sync"`

	Position struct {
		MinMoveMeters         *float64 `yaml:"min_move_meters"`
		MinInterval           *string  `yaml:"min_interval"`
		StationaryMinInterval *string  `yaml:"stationary_min_interval"`
	} `yaml:"position"`
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	setString(&cfg.Port, fc.Port)
	setString(&cfg.MetricsPort, fc.MetricsPort)
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.RedisAddr, fc.RedisAddr)
	setInt(&cfg.RedisDB, fc.RedisDB)

	setString(&cfg.Vendor.BaseURL, fc.Vendor.BaseURL)
	setString(&cfg.Vendor.Token, fc.Vendor.Token)
	setInt(&cfg.Vendor.VendorUTCOffsetHours, fc.Vendor.VendorUTCOffsetHours)
	setInt(&cfg.Vendor.DisplayUTCOffsetHours, fc.Vendor.DisplayUTCOffsetHours)
	setInt(&cfg.Vendor.TimeoutSeconds, fc.Vendor.TimeoutSeconds)

	setInt(&cfg.RateLimit.MaxCallsPerSecond, fc.RateLimit.MaxCallsPerSecond)
	setInt(&cfg.RateLimit.RateLimitRetries, fc.RateLimit.RateLimitRetries)
	setInt(&cfg.RateLimit.TransientRetries, fc.RateLimit.TransientRetries)

	if fc.Sync.Devices != nil {
		cfg.Sync.Devices = fc.Sync.Devices
	}
	setInt(&cfg.Sync.FullLookbackDays, fc.Sync.FullLookbackDays)

	if fc.Position.MinMoveMeters != nil {
		cfg.Position.MinMoveMeters = *fc.Position.MinMoveMeters
	}

	durations := []struct {
		dst *time.Duration
		src *string
		key string
	}{
		{&cfg.RateLimit.BurstWindow, fc.RateLimit.BurstWindow, "rate_limit.burst_window"},
		{&cfg.RateLimit.BackoffBase, fc.RateLimit.BackoffBase, "rate_limit.backoff_base"},
		{&cfg.RateLimit.BackoffCap, fc.RateLimit.BackoffCap, "rate_limit.backoff_cap"},
		{&cfg.RateLimit.TransientBackoff, fc.RateLimit.TransientBackoff, "rate_limit.transient_backoff"},
		{&cfg.Sync.Interval, fc.Sync.Interval, "sync.interval"},
		{&cfg.Sync.StaleRunningTimeout, fc.Sync.StaleRunningTimeout, "sync.stale_running_timeout"},
		{&cfg.Sync.BackfillWindow, fc.Sync.BackfillWindow, "sync.backfill_window"},
		{&cfg.Sync.EventCooldown, fc.Sync.EventCooldown, "sync.event_cooldown"},
		{&cfg.Position.MinInterval, fc.Position.MinInterval, "position.min_interval"},
		{&cfg.Position.StationaryMinInterval, fc.Position.StationaryMinInterval, "position.stationary_min_interval"},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.src, d.key); err != nil {
			return err
		}
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string, key string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	*dst = d
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		cfg.MetricsPort = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = n
		}
	}
	if v := os.Getenv("VENDOR_BASE_URL"); v != "" {
		cfg.Vendor.BaseURL = v
	}
	if v := os.Getenv("VENDOR_TOKEN"); v != "" {
		cfg.Vendor.Token = v
	}
	if v := os.Getenv("VENDOR_UTC_OFFSET_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vendor.VendorUTCOffsetHours = n
		}
	}
	if v := os.Getenv("SYNC_DEVICES"); v != "" {
		cfg.Sync.Devices = splitCSV(v)
	}
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sync.Interval = d
		}
	}
	if v := os.Getenv("MAX_CALLS_PER_SECOND"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.MaxCallsPerSecond = n
		}
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
