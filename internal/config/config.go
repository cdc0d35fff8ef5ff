package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimit configures one category's sliding window.
type RateLimit struct {
	MaxRequests int
	Window      time.Duration
}

// Delays holds the default inter-item pause per bulk operation kind.
type Delays struct {
	Send    time.Duration
	Forward time.Duration
	Delete  time.Duration
	Invite  time.Duration
	Read    time.Duration
	Info    time.Duration
}

// Config holds configuration loaded from environment variables.
type Config struct {
	APIID         string
	APIHash       string
	SessionToken  string
	SessionSecret string

	PoolSize       int
	AcquireTimeout time.Duration

	RateLimits map[string]RateLimit

	CacheDefaultTTL time.Duration
	CacheTTLs       map[string]time.Duration
	RedisAddr       string // optional shared cache backend

	BulkDelays Delays

	MetricsAddr string
}

// defaultRateLimits mirrors the platform's practical ceilings per
// operation category.
func defaultRateLimits() map[string]RateLimit {
	return map[string]RateLimit{
		"read":    {MaxRequests: 30, Window: time.Second},
		"write":   {MaxRequests: 10, Window: time.Second},
		"media":   {MaxRequests: 5, Window: time.Second},
		"admin":   {MaxRequests: 5, Window: time.Second},
		"default": {MaxRequests: 20, Window: time.Second},
	}
}

// defaultCacheTTLs maps cache categories to how long their data stays useful.
func defaultCacheTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		"chat_info":    600 * time.Second,
		"user_info":    600 * time.Second,
		"messages":     120 * time.Second,
		"contacts":     900 * time.Second,
		"dialogs":      300 * time.Second,
		"participants": 600 * time.Second,
	}
}

// Load reads environment variables and returns a Config with sensible defaults.
func Load() Config {
	cfg := Config{
		APIID:           os.Getenv("TELEGRAM_API_ID"),
		APIHash:         os.Getenv("TELEGRAM_API_HASH"),
		SessionToken:    os.Getenv("TELEGRAM_SESSION_TOKEN"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		PoolSize:        envInt("POOL_SIZE", 5),
		AcquireTimeout:  envSeconds("ACQUIRE_TIMEOUT_SECONDS", 10*time.Second),
		CacheDefaultTTL: envSeconds("CACHE_DEFAULT_TTL_SECONDS", 300*time.Second),
		RateLimits:      defaultRateLimits(),
		CacheTTLs:       defaultCacheTTLs(),
		BulkDelays: Delays{
			Send:    envMillis("BULK_SEND_DELAY_MS", time.Second),
			Forward: envMillis("BULK_FORWARD_DELAY_MS", time.Second),
			Delete:  envMillis("BULK_DELETE_DELAY_MS", 500*time.Millisecond),
			Invite:  envMillis("BULK_INVITE_DELAY_MS", 2*time.Second),
			Read:    envMillis("BULK_READ_DELAY_MS", 500*time.Millisecond),
			Info:    envMillis("BULK_INFO_DELAY_MS", 500*time.Millisecond),
		},
	}
	for cat := range cfg.RateLimits {
		rl := cfg.RateLimits[cat]
		rl.MaxRequests = envInt("RATE_"+envKey(cat)+"_MAX", rl.MaxRequests)
		rl.Window = envMillis("RATE_"+envKey(cat)+"_WINDOW_MS", rl.Window)
		cfg.RateLimits[cat] = rl
	}
	return cfg
}

func envKey(category string) string {
	out := make([]byte, len(category))
	for i := 0; i < len(category); i++ {
		c := category[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envSeconds(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func envMillis(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}
