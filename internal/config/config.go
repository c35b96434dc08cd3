package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	RedisURL    string
	LogLevel    string
	Environment string
	CORSOrigins string

	ClassifierURL      string
	ClassifierMode     string // "upload" (download then POST) or "remote" (GET ?url=)
	ClassifierTimeout  time.Duration
	ClassifierRPS      float64
	YtDlpPath          string
	DownloadResolution int
	WorkDir            string
	MaxUploadMB        int
	ResultCacheTTL     time.Duration
	VideoRetention     time.Duration
	SweepInterval      time.Duration
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		RedisURL:    getEnv("REDIS_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		ClassifierURL:      getEnv("CLASSIFIER_URL", "http://127.0.0.1:8000"),
		ClassifierMode:     getEnv("CLASSIFIER_MODE", "upload"),
		ClassifierTimeout:  getDuration("CLASSIFIER_TIMEOUT", 5*time.Minute),
		ClassifierRPS:      getFloat("CLASSIFIER_RPS", 2),
		YtDlpPath:          getEnv("YTDLP_PATH", "yt-dlp"),
		DownloadResolution: getInt("DOWNLOAD_RESOLUTION", 360),
		WorkDir:            getEnv("WORK_DIR", os.TempDir()+"/zeitgeist"),
		MaxUploadMB:        getInt("MAX_UPLOAD_MB", 200),
		ResultCacheTTL:     getDuration("RESULT_CACHE_TTL", time.Hour),
		VideoRetention:     getDuration("VIDEO_RETENTION", 30*time.Minute),
		SweepInterval:      getDuration("SWEEP_INTERVAL", 5*time.Minute),
	}
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f >= 0 {
		return f
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}
