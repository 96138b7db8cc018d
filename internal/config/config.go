package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Extract  ExtractConfig  `mapstructure:"extract"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	PublicEndpoint  string `mapstructure:"public_endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	BucketLookup    string `mapstructure:"bucket_lookup"`
	AutoCreate      bool   `mapstructure:"auto_create_bucket"`
}

// AuthConfig 描述身份提供方签发的会话令牌如何被校验。
// 本服务不签发令牌，只持有提供方的 RS256 公钥。
type AuthConfig struct {
	ProviderPublicKeyPEM string `mapstructure:"provider_public_key_pem"`
}

// WebhookConfig 包含身份提供方 Webhook 的共享签名密钥。
type WebhookConfig struct {
	ClerkSecret string `mapstructure:"clerk_secret"`
}

// UploadConfig 约束简历上传入口。
type UploadConfig struct {
	MaxBytes  int64  `mapstructure:"max_bytes"`
	ClamdAddr string `mapstructure:"clamd_addr"`
}

// OracleConfig contains settings for the external completion oracle
// (an OpenAI-compatible chat completion API).
type OracleConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ExtractConfig 控制字段提取流水线的行为。
// DecodeFailurePolicy 取值 "lenient"（解析失败写入占位文档并标记 processed）
// 或 "strict"（标记 error，文档不做任何改动）。
type ExtractConfig struct {
	DecodeFailurePolicy string `mapstructure:"decode_failure_policy"`
	MaxRetry            int    `mapstructure:"max_retry"`
}

// Timeout returns the per-call oracle timeout as a duration.
func (o OracleConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr returns the host:port pair for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "foliogen")
	v.SetDefault("database.user", "foliogen")
	v.SetDefault("database.password", "foliogen")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("upload.max_bytes", 5*1024*1024)
	v.SetDefault("oracle.base_url", "https://api.deepseek.com")
	v.SetDefault("oracle.model", "deepseek-chat")
	v.SetDefault("oracle.timeout_seconds", 120)
	v.SetDefault("extract.decode_failure_policy", "lenient")
	v.SetDefault("extract.max_retry", 5)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                      "API_PORT",
		"api.allowed_origins":           "API_ALLOWED_ORIGINS",
		"database.host":                 "DATABASE_HOST",
		"database.port":                 "DATABASE_PORT",
		"database.name":                 "POSTGRES_DB",
		"database.user":                 "POSTGRES_USER",
		"database.password":             "POSTGRES_PASSWORD",
		"database.sslmode":              "DATABASE_SSLMODE",
		"redis.host":                    "REDIS_HOST",
		"redis.port":                    "REDIS_PORT",
		"minio.endpoint":                "MINIO_ENDPOINT",
		"minio.public_endpoint":         "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":           "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":       "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                 "MINIO_USE_SSL",
		"minio.region":                  "MINIO_REGION",
		"minio.bucket":                  "MINIO_BUCKET",
		"minio.bucket_lookup":           "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":      "MINIO_AUTO_CREATE_BUCKET",
		"auth.provider_public_key_pem":  "AUTH_PROVIDER_PUBLIC_KEY_PEM",
		"webhook.clerk_secret":          "CLERK_WEBHOOK_SECRET",
		"upload.max_bytes":              "UPLOAD_MAX_BYTES",
		"upload.clamd_addr":             "CLAMD_ADDR",
		"oracle.base_url":               "ORACLE_BASE_URL",
		"oracle.api_key":                "ORACLE_API_KEY",
		"oracle.model":                  "ORACLE_MODEL",
		"oracle.timeout_seconds":        "ORACLE_TIMEOUT_SECONDS",
		"extract.decode_failure_policy": "EXTRACT_DECODE_FAILURE_POLICY",
		"extract.max_retry":             "EXTRACT_MAX_RETRY",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.PublicEndpoint == "" {
		return errors.New("minio public endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Upload.MaxBytes <= 0 {
		return errors.New("upload max bytes must be positive")
	}
	if cfg.Oracle.BaseURL == "" {
		return errors.New("oracle base url is required")
	}
	if cfg.Oracle.Model == "" {
		return errors.New("oracle model is required")
	}
	if cfg.Oracle.TimeoutSeconds <= 0 {
		return errors.New("oracle timeout must be positive")
	}
	switch strings.ToLower(cfg.Extract.DecodeFailurePolicy) {
	case "lenient", "strict":
	default:
		return fmt.Errorf("invalid decode failure policy %q", cfg.Extract.DecodeFailurePolicy)
	}
	if cfg.Extract.MaxRetry < 0 {
		return errors.New("extract max retry must not be negative")
	}
	return nil
}
