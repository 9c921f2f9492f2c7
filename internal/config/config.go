package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all process configuration loaded from environment variables.
type Config struct {
	// Signal Store (spec §4.7)
	SignalStorePath string

	// Dedup cache (internal/store/rediscache) — distributed mode is opt-in;
	// an empty RedisAddr keeps the Emitter on its in-process cache only.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Sinks (internal/notification)
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string
	WSListenAddr     string

	MetricsAddr string

	// Subscription
	SubscribeInstruments string

	// Timeframes to subscribe candlestick feeds for (comma-separated, e.g.
	// "1m,5m,15m") — distinct from a plan's own effective evaluation
	// timeframe (spec §4.5), since the Coordinator must have the raw feed
	// open before any plan asks for it.
	SubscribeTimeframes string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		SignalStorePath: getEnv("SIGNAL_STORE_PATH", "data/signals.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WSListenAddr:     getEnv("WS_LISTEN_ADDR", ":8090"),

		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		SubscribeInstruments: getEnv("SUBSCRIBE_INSTRUMENTS", "ETH-USDT-SWAP"),
		SubscribeTimeframes:  getEnv("SUBSCRIBE_TIMEFRAMES", "1m,5m,15m"),
	}
}

// RedisEnabled reports whether the distributed dedup cache should be wired
// up at all (spec §7: cache failures never block emission, but the
// distributed cache itself is opt-in infrastructure).
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// ParseInstruments splits SubscribeInstruments into individual instrument IDs.
func (c *Config) ParseInstruments() []string {
	return splitNonEmpty(c.SubscribeInstruments)
}

// ParseTimeframes splits SubscribeTimeframes into individual timeframe strings.
func (c *Config) ParseTimeframes() []string {
	return splitNonEmpty(c.SubscribeTimeframes)
}

func splitNonEmpty(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
