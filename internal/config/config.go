// Package config handles loading and resolving stockcast configuration.
// Resolution order (later layers win):
//  1. built-in defaults
//  2. config.json in the current working directory
//  3. .env in the current working directory (never overrides the real environment)
//  4. environment variables STOCKCAST_DB_PATH, STOCKCAST_LISTEN_ADDR, STOCKCAST_LOG_LEVEL
//  5. CLI flags
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultConfigFile = "config.json"
	DefaultEnvFile    = ".env"

	DefaultFormat                = "table"
	DefaultHorizonDays           = 30
	DefaultLeadTimeDays          = 7
	DefaultSafetyStockMultiplier = 1.5
	DefaultMinHistory            = 14
	DefaultFallbackLength        = 30
	DefaultConcurrency           = 8
	DefaultListenAddr            = ":8080"
	DefaultRateLimit             = 20.0
	DefaultRateBurst             = 40
	DefaultCacheSize             = 512
	DefaultCacheTTL              = 10 * time.Minute
	DefaultLogLevel              = "warn"
	DefaultLogFormat             = "text"

	EnvDBPath     = "STOCKCAST_DB_PATH"
	EnvListenAddr = "STOCKCAST_LISTEN_ADDR"
	EnvLogLevel   = "STOCKCAST_LOG_LEVEL"
)

// File is the on-disk representation of config.json.
type File struct {
	DefaultFormat         string  `json:"default_format,omitempty"`
	DBPath                string  `json:"db_path,omitempty"`
	HorizonDays           int     `json:"horizon_days,omitempty"`
	LeadTimeDays          int     `json:"lead_time_days,omitempty"`
	SafetyStockMultiplier float64 `json:"safety_stock_multiplier,omitempty"`
	MinHistory            int     `json:"min_history,omitempty"`
	FallbackLength        int     `json:"fallback_length,omitempty"`
	FillGaps              bool    `json:"fill_gaps,omitempty"`
	Concurrency           int     `json:"concurrency,omitempty"`
	ListenAddr            string  `json:"listen_addr,omitempty"`
	RateLimit             float64 `json:"rate_limit,omitempty"`
	RateBurst             int     `json:"rate_burst,omitempty"`
	CacheSize             int     `json:"cache_size,omitempty"`
	CacheTTL              string  `json:"cache_ttl,omitempty"`
	LogLevel              string  `json:"log_level,omitempty"`
	LogFormat             string  `json:"log_format,omitempty"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	Format                string
	DBPath                string
	HorizonDays           int
	LeadTimeDays          int
	SafetyStockMultiplier float64
	MinHistory            int
	FallbackLength        int
	FillGaps              bool
	Concurrency           int
	ListenAddr            string
	RateLimit             float64
	RateBurst             int
	CacheSize             int
	CacheTTL              time.Duration
	LogLevel              string
	LogFormat             string
	ConfigPath            string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Seed    uint64
	Seeded  bool
}

// Overrides carries the CLI flag values that take part in resolution.
// Empty fields leave lower layers untouched.
type Overrides struct {
	DBPath    string
	LogLevel  string
	LogFormat string
	Listen    string
}

// Default returns a Config holding only the built-in defaults.
func Default() *Config {
	return &Config{
		Format:                DefaultFormat,
		HorizonDays:           DefaultHorizonDays,
		LeadTimeDays:          DefaultLeadTimeDays,
		SafetyStockMultiplier: DefaultSafetyStockMultiplier,
		MinHistory:            DefaultMinHistory,
		FallbackLength:        DefaultFallbackLength,
		Concurrency:           DefaultConcurrency,
		ListenAddr:            DefaultListenAddr,
		RateLimit:             DefaultRateLimit,
		RateBurst:             DefaultRateBurst,
		CacheSize:             DefaultCacheSize,
		CacheTTL:              DefaultCacheTTL,
		LogLevel:              DefaultLogLevel,
		LogFormat:             DefaultLogFormat,
	}
}

// Load resolves configuration from all sources. A malformed config.json is
// an error; a missing one is not.
func Load(o Overrides) (*Config, error) {
	cfg := Default()

	// Layer 1: config.json (lowest priority)
	f, path, err := loadFile()
	switch {
	case err == nil:
		applyFile(cfg, f, path)
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	// Layer 2: .env, then the process environment
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", DefaultEnvFile, err)
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	// Layer 3: CLI flags (highest priority)
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	if o.Listen != "" {
		cfg.ListenAddr = o.Listen
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".stockcast", "stockcast.db")
		}
	}

	return cfg, nil
}

// Validate returns an error if any resolved value is out of range.
func (c *Config) Validate() error {
	var problems []string
	if c.HorizonDays < 1 {
		problems = append(problems, "horizon_days must be >= 1")
	}
	if c.LeadTimeDays < 1 {
		problems = append(problems, "lead_time_days must be >= 1")
	}
	if c.SafetyStockMultiplier < 1 {
		problems = append(problems, "safety_stock_multiplier must be >= 1")
	}
	if c.MinHistory < 2 {
		problems = append(problems, "min_history must be >= 2")
	}
	if c.FallbackLength < 2 {
		problems = append(problems, "fallback_length must be >= 2")
	}
	if c.Concurrency < 1 {
		problems = append(problems, "concurrency must be >= 1")
	}
	if c.RateLimit <= 0 || c.RateBurst < 1 {
		problems = append(problems, "rate_limit must be > 0 and rate_burst >= 1")
	}
	if c.CacheSize < 0 {
		problems = append(problems, "cache_size must be >= 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// loadFile attempts to read config.json from the current working directory.
// A missing file is reported with an error wrapping os.ErrNotExist.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	f, err := ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// ReadFile parses a config.json at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config.json not found at %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.HorizonDays > 0 {
		cfg.HorizonDays = f.HorizonDays
	}
	if f.LeadTimeDays > 0 {
		cfg.LeadTimeDays = f.LeadTimeDays
	}
	if f.SafetyStockMultiplier > 0 {
		cfg.SafetyStockMultiplier = f.SafetyStockMultiplier
	}
	if f.MinHistory > 0 {
		cfg.MinHistory = f.MinHistory
	}
	if f.FallbackLength > 0 {
		cfg.FallbackLength = f.FallbackLength
	}
	if f.FillGaps {
		cfg.FillGaps = true
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.ListenAddr != "" {
		cfg.ListenAddr = f.ListenAddr
	}
	if f.RateLimit > 0 {
		cfg.RateLimit = f.RateLimit
	}
	if f.RateBurst > 0 {
		cfg.RateBurst = f.RateBurst
	}
	if f.CacheSize > 0 {
		cfg.CacheSize = f.CacheSize
	}
	if f.CacheTTL != "" {
		if d, err := time.ParseDuration(f.CacheTTL); err == nil {
			cfg.CacheTTL = d
		}
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogFormat != "" {
		cfg.LogFormat = f.LogFormat
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `stockcast config init`.
func Template() File {
	return File{
		DefaultFormat:         DefaultFormat,
		HorizonDays:           DefaultHorizonDays,
		LeadTimeDays:          DefaultLeadTimeDays,
		SafetyStockMultiplier: DefaultSafetyStockMultiplier,
		MinHistory:            DefaultMinHistory,
		FallbackLength:        DefaultFallbackLength,
		Concurrency:           DefaultConcurrency,
		ListenAddr:            DefaultListenAddr,
		RateLimit:             DefaultRateLimit,
		RateBurst:             DefaultRateBurst,
		CacheSize:             DefaultCacheSize,
		CacheTTL:              DefaultCacheTTL.String(),
		LogLevel:              DefaultLogLevel,
		LogFormat:             DefaultLogFormat,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}

// ─── Key access ───────────────────────────────────────────────────────────────

// setters maps each config.json key to a parser for `config set`.
var setters = map[string]func(f *File, v string) error{
	"default_format": func(f *File, v string) error { f.DefaultFormat = v; return nil },
	"db_path":        func(f *File, v string) error { f.DBPath = v; return nil },
	"horizon_days":   intSetter(func(f *File, n int) { f.HorizonDays = n }),
	"lead_time_days": intSetter(func(f *File, n int) { f.LeadTimeDays = n }),
	"safety_stock_multiplier": func(f *File, v string) error {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("safety_stock_multiplier must be a number")
		}
		f.SafetyStockMultiplier = x
		return nil
	},
	"min_history":     intSetter(func(f *File, n int) { f.MinHistory = n }),
	"fallback_length": intSetter(func(f *File, n int) { f.FallbackLength = n }),
	"fill_gaps": func(f *File, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("fill_gaps must be true or false")
		}
		f.FillGaps = b
		return nil
	},
	"concurrency": intSetter(func(f *File, n int) { f.Concurrency = n }),
	"listen_addr": func(f *File, v string) error { f.ListenAddr = v; return nil },
	"rate_limit": func(f *File, v string) error {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("rate_limit must be a number")
		}
		f.RateLimit = x
		return nil
	},
	"rate_burst": intSetter(func(f *File, n int) { f.RateBurst = n }),
	"cache_size": intSetter(func(f *File, n int) { f.CacheSize = n }),
	"cache_ttl": func(f *File, v string) error {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("cache_ttl must be a duration such as 10m")
		}
		f.CacheTTL = v
		return nil
	},
	"log_level":  func(f *File, v string) error { f.LogLevel = v; return nil },
	"log_format": func(f *File, v string) error { f.LogFormat = v; return nil },
}

func intSetter(set func(f *File, n int)) func(*File, string) error {
	return func(f *File, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("value must be an integer, got %q", v)
		}
		set(f, n)
		return nil
	}
}

// Keys returns the settable config.json keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses value and assigns it to key.
func (f *File) Set(key, value string) error {
	set, ok := setters[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s", key, strings.Join(Keys(), ", "))
	}
	return set(f, value)
}

// Rows returns the resolved configuration as key/value pairs for display.
func (c *Config) Rows() [][]string {
	src := "(not found)"
	if c.ConfigPath != "" {
		src = c.ConfigPath
	}
	return [][]string{
		{"default_format", c.Format},
		{"db_path", c.DBPath},
		{"horizon_days", strconv.Itoa(c.HorizonDays)},
		{"lead_time_days", strconv.Itoa(c.LeadTimeDays)},
		{"safety_stock_multiplier", strconv.FormatFloat(c.SafetyStockMultiplier, 'g', -1, 64)},
		{"min_history", strconv.Itoa(c.MinHistory)},
		{"fallback_length", strconv.Itoa(c.FallbackLength)},
		{"fill_gaps", strconv.FormatBool(c.FillGaps)},
		{"concurrency", strconv.Itoa(c.Concurrency)},
		{"listen_addr", c.ListenAddr},
		{"rate_limit", fmt.Sprintf("%.1f req/s", c.RateLimit)},
		{"rate_burst", strconv.Itoa(c.RateBurst)},
		{"cache_size", strconv.Itoa(c.CacheSize)},
		{"cache_ttl", c.CacheTTL.String()},
		{"log_level", c.LogLevel},
		{"log_format", c.LogFormat},
		{"config_file", src},
	}
}
