package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Addr      string
	StaticDir string
	LogLevel  zapcore.Level

	Mongo struct {
		URL             string
		DB              string
		PostsCollection string
	}
	PostStore string

	MySQLDSN string

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Broadcast struct {
		Backend          string
		Channel          string
		SubscriberBuffer int
	}
	MaxCommitAttempts int

	Session struct {
		PrivateKey string
		PublicKey  string
		TTL        time.Duration
	}

	// Warnings collects values that were rejected in favour of a default.
	// They are logged once the logger exists.
	Warnings []string
}

// Load reads the optional env files (".env" when none given) and then the
// process environment. Variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cannot read env file: %w", err)
	}

	cfg := &Config{}
	cfg.Addr = getEnv("FEED_ADDR", "127.0.0.1:8000")
	cfg.StaticDir = getEnv("STATIC_DIR", "")

	if err := cfg.LogLevel.Set(getEnv("LOG_LEVEL", "info")); err != nil {
		cfg.warn("LOG_LEVEL", err)
		cfg.LogLevel = zapcore.InfoLevel
	}

	cfg.PostStore = getEnv("POST_STORE", StoreMemory)
	cfg.Mongo.URL = getEnv("MONGO_URL", "mongodb://localhost:27017")
	cfg.Mongo.DB = getEnv("MONGO_DB", "socialfeed")
	cfg.Mongo.PostsCollection = getEnv("MONGO_POSTS_COLLECTION", "posts")

	cfg.MySQLDSN = getEnv("MYSQL_DSN", "")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = cfg.getInt("REDIS_DB", 0)

	cfg.Broadcast.Backend = getEnv("BROADCAST_BACKEND", BackendMemory)
	cfg.Broadcast.Channel = getEnv("BROADCAST_CHANNEL", "socialfeed:events")
	cfg.Broadcast.SubscriberBuffer = cfg.getInt("SUBSCRIBER_BUFFER", 64)
	cfg.MaxCommitAttempts = cfg.getInt("MAX_COMMIT_ATTEMPTS", 5)

	cfg.Session.PrivateKey = getEnv("JWT_PRIVATE_KEY", "key.rsa")
	cfg.Session.PublicKey = getEnv("JWT_PUBLIC_KEY", "key.rsa.pub")
	cfg.Session.TTL = cfg.getDuration("SESSION_TTL", 7*24*time.Hour)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.PostStore {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("unknown POST_STORE %q", cfg.PostStore)
	}

	switch cfg.Broadcast.Backend {
	case BackendMemory:
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			return errors.New("BROADCAST_BACKEND=redis needs REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown BROADCAST_BACKEND %q", cfg.Broadcast.Backend)
	}

	return nil
}

// NewLogger builds the production zap logger at the configured level.
func (cfg *Config) NewLogger() (*zap.SugaredLogger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}

	sugar := logger.Sugar()
	for _, w := range cfg.Warnings {
		sugar.Warn(w)
	}
	return sugar, nil
}

func (cfg *Config) warn(key string, err error) {
	cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid %s, using default: %v", key, err))
}

func (cfg *Config) getInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		if err == nil {
			err = fmt.Errorf("negative value %d", v)
		}
		cfg.warn(key, err)
		return fallback
	}
	return v
}

func (cfg *Config) getDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		if err == nil {
			err = fmt.Errorf("non-positive value %v", v)
		}
		cfg.warn(key, err)
		return fallback
	}
	return v
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
