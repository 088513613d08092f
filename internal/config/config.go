package config

import (
	"time"

	"github.com/docgate/docgate/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is used when JWT_SECRET is unset. Never run production on it.
const DefaultJWTSecret = "change-this-secret-in-production"

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	MinIO     MinIOConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr is the listen address.
func (s ServerConfig) Addr() string { return s.Host + ":" + s.Port }

// MongoDBConfig: an empty URI selects the in-memory store.
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type AuthConfig struct {
	Required     bool
	OIDCIssuer   string
	OIDCClientID string
}

type RateLimitConfig struct {
	Enabled  bool
	RPS      float64
	Burst    int
	UseRedis bool
	Window   time.Duration
}

type AuditConfig struct {
	Enabled    bool
	Collection string
	Buffer     int
}

type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	Region        string
	PresignExpiry time.Duration
}

// Enabled reports whether exports to object storage are configured.
func (m MinIOConfig) Enabled() bool { return m.Endpoint != "" }

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MONGODB_DATABASE", "docgate")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("JWT_TTL_MINUTES", 1440)
	v.SetDefault("AUTH_REQUIRED", true)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("AUDIT_ENABLED", true)
	v.SetDefault("AUDIT_COLLECTION", "actions")
	v.SetDefault("AUDIT_BUFFER", 256)
	v.SetDefault("MINIO_BUCKET", "docgate")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("MINIO_PRESIGN_MINUTES", 60)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  time.Duration(v.GetInt("SERVER_READ_TIMEOUT")) * time.Second,
			WriteTimeout: time.Duration(v.GetInt("SERVER_WRITE_TIMEOUT")) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:         v.GetString("JWT_SECRET"),
			AccessTokenTTL: time.Duration(v.GetInt("JWT_TTL_MINUTES")) * time.Minute,
		},
		Auth: AuthConfig{
			Required:     v.GetBool("AUTH_REQUIRED"),
			OIDCIssuer:   v.GetString("OIDC_ISSUER"),
			OIDCClientID: v.GetString("OIDC_CLIENT_ID"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:      v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:    v.GetInt("RATE_LIMIT_BURST"),
			UseRedis: v.GetBool("RATE_LIMIT_USE_REDIS"),
			Window:   time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    v.GetBool("AUDIT_ENABLED"),
			Collection: v.GetString("AUDIT_COLLECTION"),
			Buffer:     v.GetInt("AUDIT_BUFFER"),
		},
		MinIO: MinIOConfig{
			Endpoint:      v.GetString("MINIO_ENDPOINT"),
			AccessKey:     v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:     v.GetString("MINIO_SECRET_KEY"),
			UseSSL:        v.GetBool("MINIO_USE_SSL"),
			Bucket:        v.GetString("MINIO_BUCKET"),
			Region:        v.GetString("MINIO_REGION"),
			PresignExpiry: time.Duration(v.GetInt("MINIO_PRESIGN_MINUTES")) * time.Minute,
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	// Basic validation
	if cfg.JWT.Secret == DefaultJWTSecret {
		logger.Warnf("JWT_SECRET is not set; using the built-in default, set a secure value in production")
	}
	if cfg.MongoDB.URI == "" {
		logger.Warnf("MONGODB_URI not set; documents are kept in memory and lost on restart")
	}

	return cfg, nil
}
