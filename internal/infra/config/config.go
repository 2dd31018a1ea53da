package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервиса.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsPort int    `envconfig:"METRICS_PORT" default:"9090"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	JWT struct {
		Secret string        `envconfig:"JWT_SECRET"`
		TTL    time.Duration `envconfig:"JWT_TTL" default:"168h"`
	} `envconfig:""`

	LLM struct {
		APIKey      string        `envconfig:"LLM_API_KEY"`
		BaseURL     string        `envconfig:"LLM_BASE_URL" default:"https://api.groq.com/openai/v1"`
		Model       string        `envconfig:"LLM_MODEL" default:"llama-3.1-8b-instant"`
		Temperature float64       `envconfig:"LLM_TEMPERATURE" default:"0.7"`
		Timeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	} `envconfig:""`

	Whisper struct {
		APIKey  string        `envconfig:"WHISPER_API_KEY"`
		BaseURL string        `envconfig:"WHISPER_BASE_URL" default:"https://api.groq.com/openai/v1"`
		Model   string        `envconfig:"WHISPER_MODEL" default:"whisper-large-v3"`
		Timeout time.Duration `envconfig:"WHISPER_TIMEOUT" default:"300s"`
	} `envconfig:""`

	MinIO struct {
		Endpoint  string        `envconfig:"MINIO_ENDPOINT"`
		AccessKey string        `envconfig:"MINIO_ACCESS_KEY"`
		SecretKey string        `envconfig:"MINIO_SECRET_KEY"`
		Bucket    string        `envconfig:"MINIO_BUCKET" default:"echoly-media"`
		UseSSL    bool          `envconfig:"MINIO_USE_SSL" default:"false"`
		URLExpiry time.Duration `envconfig:"MINIO_URL_EXPIRY" default:"168h"`
	} `envconfig:""`

	Scrape struct {
		Timeout   time.Duration `envconfig:"SCRAPE_TIMEOUT" default:"10s"`
		UserAgent string        `envconfig:"SCRAPE_USER_AGENT" default:"Mozilla/5.0"`
	} `envconfig:""`

	Pipeline struct {
		TempDir        string        `envconfig:"PIPELINE_TEMP_DIR" default:"temp_uploads"`
		InterCallDelay time.Duration `envconfig:"PIPELINE_INTER_CALL_DELAY" default:"2s"`
		MinSourceLen   int           `envconfig:"PIPELINE_MIN_SOURCE_LEN" default:"10"`
		MaxUploadBytes int64         `envconfig:"PIPELINE_MAX_UPLOAD_BYTES" default:"52428800"`
		RunLockTTL     time.Duration `envconfig:"PIPELINE_RUN_LOCK_TTL" default:"30m"`
		YTDLPPath      string        `envconfig:"YTDLP_PATH" default:"yt-dlp"`
		YTDLPTimeout   time.Duration `envconfig:"YTDLP_TIMEOUT" default:"300s"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
