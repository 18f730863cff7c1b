package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Holodex   HolodexConfig
	Pyannote  PyannoteConfig
	Whisper   WhisperConfig
	Process   ProcessConfig
	Ragtag    RagtagConfig
	RubyRuby  RubyRubyConfig
	Redis     RedisConfig
	Log       LogConfig
}

// ServerConfig holds the search API server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// StorageConfig holds the record store configuration
type StorageConfig struct {
	Path string
}

// HolodexConfig holds the Holodex metadata API configuration
type HolodexConfig struct {
	APIKey      string
	BaseURL     string
	RatePerSec  float64
	Parallelism int
}

// PyannoteConfig holds the diarization backend configuration
type PyannoteConfig struct {
	// BaseURLs lists every configured pyannote-server instance. Requests are
	// spread across them by least-busy selection.
	BaseURLs         []string
	Checkpoint       string
	HuggingfaceToken string
	ParallelPerHost  int
	Timeout          time.Duration
}

// WhisperConfig holds the transcription backend configuration
type WhisperConfig struct {
	// BaseURLs lists every configured OpenAI-compatible whisper endpoint.
	BaseURLs        []string
	APIKey          string
	Model           string
	ParallelPerHost int
	Timeout         time.Duration
}

// ProcessConfig bounds per-stage parallelism of the batch pipeline
type ProcessConfig struct {
	VideoParallel      int
	FetchParallel      int
	DiarizeParallel    int
	TranscribeParallel int
}

// RagtagConfig holds the S3-compatible archive mirror configuration
type RagtagConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// RubyRubyConfig holds the plain-HTTP archive mirror configuration
type RubyRubyConfig struct {
	BaseURL string
}

// RedisConfig holds the optional search-response cache configuration.
// An empty Host disables Redis and falls back to the in-memory cache.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Dir   string
	Level string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	videoParallel := getEnvAsInt("VIDEO_PROCESS_PARALLEL_COUNT", 1)

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Storage: StorageConfig{
			Path: getEnv("STORAGE_PATH", "./data"),
		},
		Holodex: HolodexConfig{
			APIKey:      getEnv("HOLODEX_API_KEY", ""),
			BaseURL:     getEnv("HOLODEX_BASE_URL", "https://holodex.net/api/v2"),
			RatePerSec:  getEnvAsFloat("HOLODEX_RATE_PER_SEC", 1.0),
			Parallelism: getEnvAsInt("HOLODEX_PARALLEL_COUNT", 1),
		},
		Pyannote: PyannoteConfig{
			BaseURLs:         getEnvAsList("PYANNOTE_BASE_URLS", "http://localhost:8001/"),
			Checkpoint:       getEnv("PYANNOTE_CHECKPOINT", "pyannote/speaker-diarization-3.1"),
			HuggingfaceToken: getEnv("HUGGINGFACE_TOKEN", ""),
			ParallelPerHost:  getEnvAsInt("PYANNOTE_PARALLEL_COUNT", 1),
			Timeout:          getEnvAsDuration("PYANNOTE_TIMEOUT", "30m"),
		},
		Whisper: WhisperConfig{
			BaseURLs:        getEnvAsList("WHISPER_BASE_URLS", "http://localhost:8000/v1/"),
			APIKey:          getEnv("WHISPER_API_KEY", "placeholder"),
			Model:           getEnv("WHISPER_MODEL", "large-v3"),
			ParallelPerHost: getEnvAsInt("WHISPER_PARALLEL_COUNT", 1),
			Timeout:         getEnvAsDuration("WHISPER_TIMEOUT", "5m"),
		},
		Process: ProcessConfig{
			VideoParallel:      videoParallel,
			FetchParallel:      getEnvAsInt("VIDEO_FETCH_PARALLEL_COUNT", videoParallel),
			DiarizeParallel:    getEnvAsInt("VIDEO_DIARIZE_PARALLEL_COUNT", 1),
			TranscribeParallel: getEnvAsInt("VIDEO_TRANSCRIBE_PARALLEL_COUNT", 1),
		},
		Ragtag: RagtagConfig{
			Endpoint:        getEnv("RAGTAG_ENDPOINT", "archive.ragtag.moe"),
			AccessKeyID:     getEnv("RAGTAG_ACCESS_KEY", ""),
			SecretAccessKey: getEnv("RAGTAG_SECRET_KEY", ""),
			BucketName:      getEnv("RAGTAG_BUCKET", "ragtag-archive"),
			UseSSL:          getEnvAsBool("RAGTAG_USE_SSL", true),
		},
		RubyRuby: RubyRubyConfig{
			BaseURL: getEnv("RUBYRUBY_BASE_URL", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", "10m"),
		},
		Log: LogConfig{
			Dir:   getEnv("LOG_DIR", "./logs"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("STORAGE_PATH is required")
	}
	if len(c.Pyannote.BaseURLs) == 0 {
		return fmt.Errorf("PYANNOTE_BASE_URLS must list at least one endpoint")
	}
	if len(c.Whisper.BaseURLs) == 0 {
		return fmt.Errorf("WHISPER_BASE_URLS must list at least one endpoint")
	}
	if c.Process.VideoParallel < 1 {
		return fmt.Errorf("VIDEO_PROCESS_PARALLEL_COUNT must be at least 1")
	}
	return nil
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// RedisEnabled reports whether the optional Redis cache is configured
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

func getEnvAsList(key string, defaultValue string) []string {
	valueStr := getEnv(key, defaultValue)
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
