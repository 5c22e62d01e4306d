package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	Port string
	Env  string // "development" or "production"

	// AppSecret signs the per-session capability tokens. SecretGenerated is
	// true when no APP_SECRET was provided and a random one-off secret is in
	// use; tokens then stop verifying across restarts.
	AppSecret       []byte
	SecretGenerated bool

	WorkDir       string // Scratch root holding one directory per session
	SessionTTL    time.Duration
	SweepInterval time.Duration
	MaxUploadSize int64

	StreamTimeout time.Duration // Wall-clock ceiling for one progress stream
	PollInterval  time.Duration // Progress re-poll interval for push streams

	FFmpegPath  string
	FFprobePath string
	YtdlpPath   string

	// YoutubeCookies optionally carries cookies.txt content handed to yt-dlp.
	YoutubeCookies string

	// ProgressBackend selects the progress store: "memory" or "redis".
	ProgressBackend string
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int

	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvInt64 gets an environment variable as int64 or returns a default value.
func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as a duration ("30m", "500ms")
// or returns a default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	env := getEnv("APP_ENV", "development")

	secret := os.Getenv("APP_SECRET")
	generated := false
	if secret == "" {
		if env == "production" {
			log.Fatal("APP_SECRET environment variable is required in production")
		}
		buf := make([]byte, 16)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("Failed to generate development secret: %v", err)
		}
		secret = hex.EncodeToString(buf)
		generated = true
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		AppSecret:       []byte(secret),
		SecretGenerated: generated,
		WorkDir:         getEnv("WORK_DIR", filepath.Join(os.TempDir(), "cliptone_sessions")),
		SessionTTL:      getEnvDuration("SESSION_TTL", 30*time.Minute),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
		MaxUploadSize:   getEnvInt64("MAX_UPLOAD_SIZE", 500<<20),
		StreamTimeout:   getEnvDuration("STREAM_TIMEOUT", 5*time.Minute),
		PollInterval:    getEnvDuration("POLL_INTERVAL", 500*time.Millisecond),
		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:     getEnv("FFPROBE_PATH", "ffprobe"),
		YtdlpPath:       getEnv("YTDLP_PATH", "yt-dlp"),
		YoutubeCookies:  os.Getenv("YOUTUBE_COOKIES"),
		ProgressBackend: getEnv("PROGRESS_BACKEND", "memory"),
		RedisHost:       getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
		LogMaxSize:      getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups:   getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:       getEnvInt("LOG_MAX_AGE", 7),
	}
}
