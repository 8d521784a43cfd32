package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"memory_promo/internal/game"
	"memory_promo/internal/session"

	"github.com/joho/godotenv"
)

// Драйверы хранилища победителей
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	RedisURL    string
	StoreDriver string

	WinnersCollection string
	StorePath         string

	JWTSecret       string
	SessionTokenTTL time.Duration
	AllowedOrigin   string

	BotToken         string
	AdminTelegramIDs []int64
	AdminBotEnabled  bool

	RateLimitPerMinute int

	Rules           game.Rules
	TransitionDelay time.Duration

	LogLevel  string
	LogFormat string
}

// Load читает .env (если есть) и переменные окружения
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	rules := game.DefaultRules()
	rules.MaxMoves = getInt("MAX_MOVES", rules.MaxMoves)
	rules.TimeBudgetSeconds = getInt("TIME_BUDGET_SECONDS", rules.TimeBudgetSeconds)
	rules.RevealDelay = time.Duration(getInt("REVEAL_DELAY_MS", int(rules.RevealDelay/time.Millisecond))) * time.Millisecond
	if deck := getList("DECK"); len(deck) > 0 {
		rules.Deck = deck
	}

	cfg := Config{
		AppPort:     get("APP_PORT", "8080"),
		DatabaseURL: get("DATABASE_URL", ""),
		RedisURL:    get("REDIS_URL", ""),
		StoreDriver: strings.ToLower(get("STORE_DRIVER", "")),

		WinnersCollection: get("WINNERS_COLLECTION", session.DefaultCollection),
		StorePath:         get("STORE_PATH", session.DefaultStorePath),

		JWTSecret:       get("JWT_SECRET", ""),
		SessionTokenTTL: getDuration("SESSION_TOKEN_TTL", 2*time.Hour),
		AllowedOrigin:   get("ALLOWED_ORIGIN", ""),

		BotToken:         get("BOT_TOKEN", ""),
		AdminTelegramIDs: getIDs("ADMIN_TELEGRAM_IDS"),
		AdminBotEnabled:  getBool("ADMIN_BOT_ENABLED", false),

		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 30),

		Rules:           rules,
		TransitionDelay: time.Duration(getInt("TRANSITION_DELAY_MS", int(session.DefaultTransitionDelay/time.Millisecond))) * time.Millisecond,

		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "text"),
	}

	// драйвер по умолчанию выбирается по наличию адресов
	if cfg.StoreDriver == "" {
		switch {
		case cfg.DatabaseURL != "":
			cfg.StoreDriver = StorePostgres
		case cfg.RedisURL != "":
			cfg.StoreDriver = StoreRedis
		default:
			cfg.StoreDriver = StoreMemory
		}
	}
	return cfg
}

// Validate проверяет согласованность настроек
func (c Config) Validate() error {
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres store")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for redis store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TransitionDelay < 0 {
		return errors.New("TRANSITION_DELAY_MS must not be negative")
	}
	if c.AdminBotEnabled && c.BotToken == "" {
		return errors.New("BOT_TOKEN is required when ADMIN_BOT_ENABLED")
	}
	return nil
}

// SessionConfig собирает параметры игровой сессии
func (c Config) SessionConfig() session.Config {
	sc := session.DefaultConfig()
	sc.Rules = c.Rules
	sc.Collection = c.WinnersCollection
	sc.StorePath = c.StorePath
	sc.TransitionDelay = c.TransitionDelay
	return sc
}

func (c Config) JSONLogs() bool { return c.LogFormat == "json" }

func get(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getInt(key string, def int) int {
	v := get(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in env, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := get(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid bool in env, using default", "key", key, "value", v)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := get(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in env, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(get(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ADMIN_TELEGRAM_IDS=123,456
func getIDs(key string) []int64 {
	var ids []int64
	for _, part := range getList(key) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			slog.Warn("invalid telegram id in env", "key", key, "value", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
