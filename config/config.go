package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings, loaded from the environment.
type Config struct {
	// HTTP server
	Port           string
	AllowedOrigins []string
	RateLimitRPS   float64

	// Browser
	BrowserBin string
	Headless   bool

	// Fetching
	Regions              []string
	NavigationTimeout    time.Duration
	SelectorTimeout      time.Duration
	InterstitialBudget   time.Duration
	MaxRetries           int
	RetryDelay           time.Duration
	MaxConcurrentRegions int

	// Postal codes keyed by region, applied where a marketplace needs a
	// delivery location before it shows local offers.
	PostalCodes map[string]string

	// Monitoring loop
	MonitoringInterval    time.Duration
	DelayBetweenProducts  time.Duration
	DelayAfterProduct     time.Duration
	DelayAfterError       time.Duration
	DefaultScrapeInterval int
	MinScrapeInterval     int
	MaxScrapeInterval     int
	DefaultAlertThreshold float64

	// Telegram
	TelegramEnabled  bool
	TelegramBotToken string
	TelegramChatID   int64
}

// Load reads the configuration from environment variables, applying
// defaults for anything unset.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),

		BrowserBin: getEnv("BROWSER_BIN", ""),
		Headless:   getEnvBool("BROWSER_HEADLESS", true),

		Regions:              splitRegions(getEnv("MONITOR_REGIONS", "eg,sa,ae,com,de")),
		NavigationTimeout:    getEnvDuration("NAVIGATION_TIMEOUT", 30*time.Second),
		SelectorTimeout:      getEnvDuration("SELECTOR_TIMEOUT", 15*time.Second),
		InterstitialBudget:   getEnvDuration("INTERSTITIAL_BUDGET", 3*time.Second),
		MaxRetries:           getEnvInt("MAX_RETRIES", 3),
		RetryDelay:           getEnvDuration("RETRY_DELAY", 5*time.Second),
		MaxConcurrentRegions: getEnvInt("MAX_CONCURRENT_REGIONS", 3),

		PostalCodes: map[string]string{
			"de":  getEnv("POSTAL_CODE_DE", "34117"),
			"com": getEnv("POSTAL_CODE_COM", "22102"),
		},

		MonitoringInterval:    getEnvDuration("MONITORING_INTERVAL", 5*time.Minute),
		DelayBetweenProducts:  getEnvDuration("DELAY_BETWEEN_PRODUCTS", 5*time.Second),
		DelayAfterProduct:     getEnvDuration("DELAY_AFTER_PRODUCT", 3*time.Second),
		DelayAfterError:       getEnvDuration("DELAY_AFTER_ERROR", 3*time.Second),
		DefaultScrapeInterval: getEnvInt("DEFAULT_SCRAPE_INTERVAL_MINUTES", 5),
		MinScrapeInterval:     getEnvInt("MIN_SCRAPE_INTERVAL_MINUTES", 1),
		MaxScrapeInterval:     getEnvInt("MAX_SCRAPE_INTERVAL_MINUTES", 1440),
		DefaultAlertThreshold: getEnvFloat("DEFAULT_ALERT_THRESHOLD_PERCENT", 5),

		TelegramEnabled:  getEnvBool("TELEGRAM_ENABLED", false),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnvInt64("TELEGRAM_CHAT_ID", 0),
	}
}

func splitRegions(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// ClampInterval bounds a requested scrape interval to the configured range,
// substituting the default for zero.
func (c *Config) ClampInterval(minutes int) int {
	if minutes <= 0 {
		return c.DefaultScrapeInterval
	}
	if minutes < c.MinScrapeInterval {
		return c.MinScrapeInterval
	}
	if minutes > c.MaxScrapeInterval {
		return c.MaxScrapeInterval
	}
	return minutes
}

// ThresholdOrDefault substitutes the default alert threshold only when the
// field was absent. An explicit 0 means alert on any price move.
func (c *Config) ThresholdOrDefault(pct *float64) float64 {
	if pct == nil {
		return c.DefaultAlertThreshold
	}
	return *pct
}
