package config

import (
	"fmt"
	"log/slog"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	PostgresDSN string `env:"POSTGRES_DSN" envDefault:"host=localhost user=postgres password=postgres dbname=nexbank sslmode=disable"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	KafkaBroker string `env:"KAFKA_BROKER" envDefault:"localhost:9092"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	OTPTTL     time.Duration `env:"OTP_TTL" envDefault:"10m"`
	SessionTTL time.Duration `env:"TRANSFER_SESSION_TTL" envDefault:"10m"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	FromEmail    string `env:"FROM_EMAIL" envDefault:"no-reply@nexbank.dev"`
	SiteName     string `env:"SITE_NAME" envDefault:"NexBank"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using environment only", "error", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	slog.Info("config loaded",
		"redis_addr", cfg.RedisAddr,
		"kafka_broker", cfg.KafkaBroker,
		"http_addr", cfg.HTTPAddr,
		"otp_ttl", cfg.OTPTTL,
		"session_ttl", cfg.SessionTTL)
	return &cfg, nil
}
