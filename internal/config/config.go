package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the service.
type Config struct {
	HTTPAddr      string
	DatabaseURL   string
	SecretKey     string
	TokenTTL      time.Duration
	TelegramToken string // empty disables notifications
	SummaryTime   string // HH:MM, daily timesheet summary
	WatchdogAfter time.Duration
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:      strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SecretKey:     strings.TrimSpace(os.Getenv("SECRET_KEY")),
		TokenTTL:      parseMinutes(strings.TrimSpace(os.Getenv("TOKEN_TTL_MINUTES"))),
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		SummaryTime:   strings.TrimSpace(os.Getenv("SUMMARY_TIME")),
		WatchdogAfter: parseHours(strings.TrimSpace(os.Getenv("WATCHDOG_HOURS"))),
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "legal_timer.db"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.SummaryTime == "" {
		cfg.SummaryTime = "18:00"
	}
	if cfg.WatchdogAfter == 0 {
		cfg.WatchdogAfter = 8 * time.Hour
	}

	if cfg.SecretKey == "" {
		return cfg, fmt.Errorf("SECRET_KEY is required")
	}

	return cfg, nil
}

func parseMinutes(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}

func parseHours(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
