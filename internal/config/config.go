package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve in minimal images

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string   `validate:"required,numeric"`
	AllowedOrigins []string `validate:"min=1,dive,required"`
	LogLevel       string   `validate:"omitempty"`

	WSReadTimeout  time.Duration `validate:"gt=0"`
	WSWriteTimeout time.Duration `validate:"gt=0"`
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	UpstreamBaseURL string        `validate:"required,url"`
	UpstreamToken   string        `validate:"omitempty"`
	UpstreamTimeout time.Duration `validate:"gt=0"`
	UpstreamRPS     float64       `validate:"gte=0"`
	UpstreamBurst   int           `validate:"min=1"`

	DetailFetchTimeout    time.Duration  `validate:"gt=0"`
	EnrichDelay           time.Duration  `validate:"gte=0"`
	BatchMissingInfo      int            `validate:"min=1"`
	BatchContactTime      int            `validate:"min=1"`
	BatchValidApplication int            `validate:"min=1"`
	BatchAttendance       int            `validate:"min=1"`
	RefreshDebounce       time.Duration  `validate:"gte=0"`
	PollInterval          time.Duration  `validate:"gt=0"`
	LogRangeDays          int            `validate:"min=1"`
	RateMode              string         `validate:"oneof=contact step"`
	Timezone              *time.Location `validate:"required"`
	PhoneRegion           string         `validate:"len=2"`
	RedisURL              string         `validate:"omitempty,url"`
	RedisTTL              time.Duration  `validate:"gte=0"`

	AuthMode   string `validate:"oneof=none hmac jwks"`
	JWTSecret  string `validate:"required_if=AuthMode hmac"`
	OIDCIssuer string `validate:"required_if=AuthMode jwks"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:            getEnv("PORT", "8080"),
		AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		UpstreamBaseURL: getEnv("UPSTREAM_BASE_URL", "http://localhost:8000/api"),
		UpstreamToken:   os.Getenv("UPSTREAM_TOKEN"),
		RateMode:        getEnv("RATE_MODE", "contact"),
		PhoneRegion:     strings.ToUpper(getEnv("PHONE_REGION", "JP")),
		RedisURL:        os.Getenv("REDIS_URL"),
		AuthMode:        getEnv("AUTH_MODE", "none"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		OIDCIssuer:      os.Getenv("OIDC_ISSUER"),
	}

	var err error
	if config.WSReadTimeout, err = seconds("WS_READ_TIMEOUT", "60"); err != nil {
		return nil, err
	}
	if config.WSWriteTimeout, err = seconds("WS_WRITE_TIMEOUT", "10"); err != nil {
		return nil, err
	}

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	if config.UpstreamTimeout, err = duration("UPSTREAM_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if config.UpstreamRPS, err = strconv.ParseFloat(getEnv("UPSTREAM_RPS", "10"), 64); err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_RPS: %w", err)
	}
	if config.UpstreamBurst, err = integer("UPSTREAM_BURST", "5"); err != nil {
		return nil, err
	}
	if config.DetailFetchTimeout, err = duration("DETAIL_FETCH_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if config.EnrichDelay, err = millis("ENRICH_DELAY_MS", "200"); err != nil {
		return nil, err
	}
	if config.BatchMissingInfo, err = integer("ENRICH_BATCH_MISSING_INFO", "20"); err != nil {
		return nil, err
	}
	if config.BatchContactTime, err = integer("ENRICH_BATCH_CONTACT_TIME", "10"); err != nil {
		return nil, err
	}
	if config.BatchValidApplication, err = integer("ENRICH_BATCH_VALID_APPLICATION", "10"); err != nil {
		return nil, err
	}
	if config.BatchAttendance, err = integer("ENRICH_BATCH_ATTENDANCE", "10"); err != nil {
		return nil, err
	}
	if config.RefreshDebounce, err = millis("REFRESH_DEBOUNCE_MS", "200"); err != nil {
		return nil, err
	}
	if config.PollInterval, err = duration("POLL_INTERVAL", "60s"); err != nil {
		return nil, err
	}
	if config.LogRangeDays, err = integer("LOG_RANGE_DAYS", "180"); err != nil {
		return nil, err
	}
	if config.RedisTTL, err = duration("REDIS_TTL", "24h"); err != nil {
		return nil, err
	}

	tz := getEnv("TIMEZONE", "Asia/Tokyo")
	if config.Timezone, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func seconds(key, def string) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}

func millis(key, def string) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Millisecond, nil
}

func duration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func integer(key, def string) (int, error) {
	n, err := strconv.Atoi(getEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
