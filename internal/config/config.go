package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port         string
	DatabaseURL  string
	StoreDriver  string // postgres or memory
	AutoMigrate  bool
	TemplatesDir string

	SessionSecret string
	JWTSecret     string
	JWTTTL        time.Duration

	LogLevel  string
	LogFormat string

	MaxCommentDepth    int
	ThreadReplyCap     int
	ThreadCacheTTL     time.Duration
	ThreadCacheSize    int
	WriteRatePerMinute int
}

// Load 从环境变量读取配置，未设置时使用默认值
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=cinesocial port=5432 sslmode=disable TimeZone=UTC"),
		StoreDriver:  getEnv("STORE_DRIVER", "postgres"),
		AutoMigrate:  getBool("AUTO_MIGRATE", true),
		TemplatesDir: getEnv("TEMPLATES_DIR", "./web/templates"),

		SessionSecret: getEnv("SESSION_SECRET", "secret_key_change_me"),
		JWTSecret:     getEnv("JWT_SECRET", "replace-this-with-a-strong-secret"),
		JWTTTL:        getDuration("JWT_TTL", 24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MaxCommentDepth:    getInt("MAX_COMMENT_DEPTH", 10),
		ThreadReplyCap:     getInt("THREAD_REPLY_CAP", 100),
		ThreadCacheTTL:     getDuration("THREAD_CACHE_TTL", 30*time.Second),
		ThreadCacheSize:    getInt("THREAD_CACHE_SIZE", 500),
		WriteRatePerMinute: getInt("WRITE_RATE_PER_MINUTE", 30),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
