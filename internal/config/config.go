package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Worker   WorkerConfig
	STT      STTConfig
	SMTP     SMTPConfig
	Delivery DeliveryConfig
	Cleanup  CleanupConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type UploadConfig struct {
	MaxBytes    int64
	MaxInFlight int
	TempDir     string
}

type WorkerConfig struct {
	Count             int
	PollInterval      time.Duration
	TranscribeTimeout time.Duration
}

type STTConfig struct {
	Backend       string // "openai" or "local"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	LocalBaseURL  string // default: "http://localhost:8178"
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type DeliveryConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
}

type CleanupConfig struct {
	SweepMaxAge time.Duration
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxBytes, err := getEnvInt64("MAX_UPLOAD_BYTES", 25<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}

	maxInFlight, err := getEnvInt("MAX_INFLIGHT_UPLOADS", 32)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_INFLIGHT_UPLOADS: %w", err)
	}

	workers, err := getEnvInt("WORKER_COUNT", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_COUNT: %w", err)
	}

	pollInterval, err := getEnvDuration("WORKER_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_POLL_INTERVAL: %w", err)
	}

	transcribeTimeout, err := getEnvDuration("TRANSCRIBE_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSCRIBE_TIMEOUT: %w", err)
	}

	smtpPort, err := getEnvInt("SMTP_PORT", 587)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	deliveryAttempts, err := getEnvInt("DELIVERY_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_MAX_ATTEMPTS: %w", err)
	}

	backoffBase, err := getEnvDuration("DELIVERY_BACKOFF_BASE", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_BACKOFF_BASE: %w", err)
	}

	sweepMaxAge, err := getEnvDuration("SWEEP_MAX_AGE", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_MAX_AGE: %w", err)
	}

	smtpUser := getEnv("SMTP_USERNAME", "")

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Upload: UploadConfig{
			MaxBytes:    maxBytes,
			MaxInFlight: maxInFlight,
			TempDir:     getEnv("UPLOAD_TEMP_DIR", os.TempDir()),
		},
		Worker: WorkerConfig{
			Count:             workers,
			PollInterval:      pollInterval,
			TranscribeTimeout: transcribeTimeout,
		},
		STT: STTConfig{
			Backend:       getEnv("STT_BACKEND", "openai"),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("STT_OPENAI_MODEL", ""),
			LocalBaseURL:  getEnv("STT_LOCAL_BASE_URL", "http://localhost:8178"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     smtpPort,
			Username: smtpUser,
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("EMAIL_FROM", defaultFrom(smtpUser)),
		},
		Delivery: DeliveryConfig{
			MaxAttempts: deliveryAttempts,
			BackoffBase: backoffBase,
		},
		Cleanup: CleanupConfig{
			SweepMaxAge: sweepMaxAge,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.STT.Backend == "openai" && c.STT.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.SMTP.Username == "" {
		missing = append(missing, "SMTP_USERNAME")
	}
	if c.SMTP.Password == "" {
		missing = append(missing, "SMTP_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func defaultFrom(username string) string {
	if username != "" {
		return username
	}
	return "no-reply@example.com"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
