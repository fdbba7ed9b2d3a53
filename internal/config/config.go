package config

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Worker   WorkerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Blob     BlobConfig
	FFmpeg   FFmpegConfig
	Auth     AuthConfig
	SSE      SSEConfig
	CORS     CORSConfig
	App      AppConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type WorkerConfig struct {
	PoolSize        int           `envconfig:"WORKER_POOL_SIZE" default:"4"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"gostream"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"gostream"`
	DBName   string `envconfig:"POSTGRES_DB" default:"gostream"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// BlobConfig holds the three configurable storage roots named in spec.md §6:
// originals, processed, and temp.
type BlobConfig struct {
	StoragePath          string `envconfig:"VIDEO_STORAGE_PATH" default:"/var/lib/gostream/originals"`
	StorageProcessedPath string `envconfig:"VIDEO_STORAGE_PROCESSED_PATH" default:"/var/lib/gostream/processed"`
	StorageTempPath      string `envconfig:"VIDEO_STORAGE_TEMP_PATH" default:"/var/lib/gostream/temp"`
	UploadMaxSizeMB      int64  `envconfig:"VIDEO_UPLOAD_MAX_SIZE_MB" default:"40"`
}

// MaxUploadBytes converts the configured MiB limit to bytes.
func (c BlobConfig) MaxUploadBytes() int64 {
	return c.UploadMaxSizeMB * 1024 * 1024
}

type FFmpegConfig struct {
	BinaryPath     string        `envconfig:"FFMPEG_BINARY_PATH" default:"ffmpeg"`
	TimeoutSeconds time.Duration `envconfig:"FFMPEG_TIMEOUT_SECONDS" default:"120s"`
}

type AuthConfig struct {
	JWTSecretKeyBase64 string        `envconfig:"JWT_SECRET_KEY_BASE64" required:"true"`
	JWTExpiration      time.Duration `envconfig:"JWT_EXPIRATION_MS" default:"3600000ms"`
	JWTIssuer          string        `envconfig:"JWT_ISSUER" default:"gostream"`
}

// JWTSecret decodes the base64-encoded signing key. The spec requires the
// decoded key to be at least 32 bytes (HMAC over a >=256-bit key).
func (c AuthConfig) JWTSecret() ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(c.JWTSecretKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode jwt secret: %w", err)
	}
	return secret, nil
}

type SSEConfig struct {
	EmitterTimeout    time.Duration `envconfig:"SSE_EMITTER_TIMEOUT_MS" default:"300000ms"`
	HeartbeatInterval time.Duration `envconfig:"SSE_HEARTBEAT_INTERVAL_MS" default:"15000ms"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type AppConfig struct {
	FrontendBaseURL string `envconfig:"APP_FRONTEND_BASE_URL" default:"http://localhost:3000"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
