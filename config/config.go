package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Events    EventsConfig
	Queue     QueueConfig
	LogLevel  string
}

type ServerConfig struct {
	Port            string
	Env             string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	TokenIssuer string
	BcryptCost  int
	CookieName  string
}

type RateLimitConfig struct {
	AuthPerMinute int
}

type EventsConfig struct {
	// CancellationCutoff 活動開始前多久停止取消報名；0 表示不啟用
	CancellationCutoff time.Duration
}

type QueueConfig struct {
	Driver           string // "redis" or "memory"
	ConsumerID       string
	BufferSize       int
	ClaimMinIdleTime time.Duration
	MaxRetryCount    int
}

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	devTokenSecret = "dev-secret-change-me"
)

var ErrMissingTokenSecret = errors.New("ACCESS_TOKEN_SECRET must be set outside development")

func (c ServerConfig) IsProduction() bool {
	return c.Env == EnvProduction
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:    GetServerConfig(),
		Database:  GetDatabaseConfig(),
		Redis:     GetRedisConfig(),
		Auth:      GetAuthConfig(),
		RateLimit: RateLimitConfig{AuthPerMinute: getEnvInt("AUTH_RATE_LIMIT_PER_MINUTE", 20)},
		Events:    EventsConfig{CancellationCutoff: getEnvDuration("CANCELLATION_CUTOFF", 0)},
		Queue:     GetQueueConfig(),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	if cfg.Auth.TokenSecret == "" {
		if cfg.Server.Env != EnvDevelopment {
			return nil, ErrMissingTokenSecret
		}
		cfg.Auth.TokenSecret = devTokenSecret
	}

	return cfg, nil
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", EnvDevelopment),
		CORSOrigins:     getEnvList("CORS_ORIGIN", []string{"*"}),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 16*1024)),
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
		MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
	}
}

func GetRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

func GetAuthConfig() AuthConfig {
	return AuthConfig{
		TokenSecret: getEnv("ACCESS_TOKEN_SECRET", ""),
		TokenExpiry: getEnvDuration("ACCESS_TOKEN_EXPIRY", 24*time.Hour),
		TokenIssuer: getEnv("TOKEN_ISSUER", "event-management-api"),
		BcryptCost:  getEnvInt("BCRYPT_COST", 10),
		CookieName:  getEnv("ACCESS_TOKEN_COOKIE", "accessToken"),
	}
}

func GetQueueConfig() QueueConfig {
	return QueueConfig{
		Driver:           getEnv("ACTIVITY_QUEUE", "redis"),
		ConsumerID:       getEnv("ACTIVITY_CONSUMER_ID", ""),
		BufferSize:       getEnvInt("ACTIVITY_QUEUE_BUFFER", 256),
		ClaimMinIdleTime: getEnvDuration("ACTIVITY_CLAIM_MIN_IDLE", 5*time.Second),
		MaxRetryCount:    getEnvInt("ACTIVITY_MAX_RETRIES", 5),
	}
}

// DSN 組出 pgx / golang-migrate 共用的連線字串
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode + "&timezone=UTC",
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
