package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AWS      AWSConfig
	Live     LiveConfig
	Media    MediaConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:3000,http://localhost:3001)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/aura?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int // 0 keeps the pgx default
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	MirrorEvents bool // publish every live frame to live:<session id>
}

// JWTConfig holds JWT validation settings. Tokens are issued elsewhere.
type JWTConfig struct {
	Secret string
}

// AWSConfig holds AWS credentials and the transcript bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	TranscriptsBucket    string
	PresignExpireMinutes int
}

// LiveConfig tunes the live session engine and its WebSocket connections.
type LiveConfig struct {
	SendBuffer      int
	IdleTimeout     time.Duration
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	MaxFrameBytes   int64
	DefaultCapacity int
	JanitorInterval time.Duration
	PersistWorkers  int
	PersistQueue    int
	ReconnectGrace  time.Duration
}

// MediaConfig describes the external RTMP ingest server.
type MediaConfig struct {
	RTMPBaseURL string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "aura"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 0),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			MirrorEvents: getEnvBool("REDIS_MIRROR_EVENTS", false),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			TranscriptsBucket:    getEnv("AWS_S3_TRANSCRIPTS_BUCKET", "aura-live-transcripts"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Live: LiveConfig{
			SendBuffer:      getEnvInt("LIVE_SEND_BUFFER", 256),
			IdleTimeout:     getEnvSeconds("LIVE_IDLE_TIMEOUT_SEC", 60),
			PingInterval:    getEnvSeconds("LIVE_PING_INTERVAL_SEC", 25),
			WriteTimeout:    getEnvSeconds("LIVE_WRITE_TIMEOUT_SEC", 10),
			MaxFrameBytes:   int64(getEnvInt("LIVE_MAX_FRAME_BYTES", 65536)),
			DefaultCapacity: getEnvInt("LIVE_DEFAULT_CAPACITY", 100),
			JanitorInterval: getEnvSeconds("LIVE_JANITOR_INTERVAL_SEC", 30),
			PersistWorkers:  getEnvInt("LIVE_PERSIST_WORKERS", 4),
			PersistQueue:    getEnvInt("LIVE_PERSIST_QUEUE", 1024),
			ReconnectGrace:  getEnvSeconds("LIVE_RECONNECT_GRACE_SEC", 120),
		},
		Media: MediaConfig{
			RTMPBaseURL: getEnv("MEDIA_RTMP_BASE_URL", "rtmp://localhost:1935/live"),
		},
	}
	if cfg.Live.DefaultCapacity < 1 || cfg.Live.DefaultCapacity > 1000 {
		return nil, fmt.Errorf("LIVE_DEFAULT_CAPACITY must be between 1 and 1000, got %d", cfg.Live.DefaultCapacity)
	}
	if cfg.Live.PingInterval >= cfg.Live.IdleTimeout {
		return nil, fmt.Errorf("LIVE_PING_INTERVAL_SEC must be shorter than LIVE_IDLE_TIMEOUT_SEC")
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
