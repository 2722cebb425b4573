package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultJWTSecret = "change-me"

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Env         string
	Port        string
	DatabaseURL string

	JWTSecret             string
	JWTIssuer             string
	SessionTTL            time.Duration
	AccessGrantTTL        time.Duration
	AccessCodeTTL         time.Duration
	AccountLifetimeMonths int

	AIURL            string
	AITimeout        time.Duration
	ChatHistoryLimit int

	CorsOrigins []string
	// TrustedProxies lists the peers, as addresses or CIDR ranges, whose
	// X-Forwarded-For header is believed.
	TrustedProxies []string

	AdminUsername string
	AdminPassword string

	RedisAddr         string
	RedisPassword     string
	CodeAttemptLimit  int
	CodeAttemptWindow time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	MetricsDiskPath      string
	MetricsSampleSeconds int
	MetricsRetention     time.Duration

	LogDir           string
	LogRetentionDays int
	LogLevel         string
}

func Load() Config {
	return Config{
		Env:                   envOr("APP_ENV", "development"),
		Port:                  envOr("PORT", "8080"),
		DatabaseURL:           mustEnv("DATABASE_URL"),
		JWTSecret:             mustEnv("JWT_SECRET"),
		JWTIssuer:             envOr("JWT_ISSUER", "mamiland"),
		SessionTTL:            time.Duration(envOrInt("SESSION_TTL_HOURS", 168)) * time.Hour,
		AccessGrantTTL:        envOrDuration("ACCESS_GRANT_TTL", time.Hour),
		AccessCodeTTL:         time.Duration(envOrInt("ACCESS_CODE_TTL_HOURS", 24)) * time.Hour,
		AccountLifetimeMonths: envOrInt("ACCOUNT_LIFETIME_MONTHS", 1),
		AIURL:                 envOr("AI_API_URL", "https://ai.mamiland.ir/api/ask"),
		AITimeout:             envOrDuration("AI_TIMEOUT", 60*time.Second),
		ChatHistoryLimit:      envOrInt("CHAT_HISTORY_LIMIT", 20),
		CorsOrigins:           parseCSV(envOr("CORS_ORIGINS", "")),
		TrustedProxies:        parseCSV(envOr("TRUSTED_PROXIES", "")),
		AdminUsername:         envOr("ADMIN_USERNAME", ""),
		AdminPassword:         envOr("ADMIN_PASSWORD", ""),
		RedisAddr:             envOr("REDIS_ADDR", ""),
		RedisPassword:         envOr("REDIS_PASSWORD", ""),
		CodeAttemptLimit:      envOrInt("CODE_ATTEMPT_LIMIT", 10),
		CodeAttemptWindow:     envOrDuration("CODE_ATTEMPT_WINDOW", 15*time.Minute),
		RateLimitRPS:          envOrFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:        envOrInt("RATE_LIMIT_BURST", 10),
		MetricsDiskPath:       envOr("METRICS_DISK_PATH", "/"),
		MetricsSampleSeconds:  envOrInt("METRICS_SAMPLE_INTERVAL", 15),
		MetricsRetention:      envOrDuration("METRICS_RETENTION", 7*24*time.Hour),
		LogDir:                envOr("LOG_DIR", "storage/logs"),
		LogRetentionDays:      envOrInt("LOG_RETENTION_DAYS", 7),
		LogLevel:              envOr("LOG_LEVEL", "info"),
	}
}

// Production reports whether cookies must be marked Secure.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c Config) Validate() error {
	if c.Production() && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be changed in production")
	}
	if c.AccountLifetimeMonths <= 0 {
		return errors.New("ACCOUNT_LIFETIME_MONTHS must be positive")
	}
	if c.MetricsSampleSeconds <= 0 {
		return errors.New("METRICS_SAMPLE_INTERVAL must be positive")
	}
	if strings.TrimSpace(c.AIURL) == "" {
		return errors.New("AI_API_URL is required")
	}
	if _, err := c.ProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// ProxyPrefixes parses TrustedProxies. A bare address is a single-host range.
func (c Config) ProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
