package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contém as configurações da aplicação
type Config struct {
	DatabaseURL  string
	DatabasePath string

	ScrapingAPIKey      string
	ScrapingServiceName string

	HTTPAddr       string
	ScrapeSchedule string

	FetchTimeout    time.Duration
	FetchMaxRetries int
	MaxPages        int

	TelegramBotToken string
	TelegramChatID   int64

	EventBufferSize int

	LogLevel    string
	LogEncoding string
}

// Load carrega as configurações das variáveis de ambiente
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:    "./prices.db",
		HTTPAddr:        ":8080",
		ScrapeSchedule:  "0 0 */6 * * *",
		FetchTimeout:    25 * time.Second,
		FetchMaxRetries: 2,
		MaxPages:        5,
		EventBufferSize: 200,
		LogLevel:        "info",
		LogEncoding:     "console",
	}

	// Postgres hospedado tem prioridade sobre o sqlite local
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("SUPABASE_DB_URL")
	}
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		cfg.DatabasePath = path
	}

	cfg.ScrapingAPIKey = os.Getenv("SCRAPING_API_KEY")
	cfg.ScrapingServiceName = strings.ToLower(strings.TrimSpace(os.Getenv("SCRAPING_SERVICE_NAME")))

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	// Agendamento vazio desativa o cron
	if schedule, ok := os.LookupEnv("SCRAPE_SCHEDULE"); ok {
		cfg.ScrapeSchedule = strings.TrimSpace(schedule)
	}

	if v := positiveInt("FETCH_TIMEOUT_SECONDS"); v > 0 {
		cfg.FetchTimeout = time.Duration(v) * time.Second
	}
	if raw := os.Getenv("FETCH_MAX_RETRIES"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			cfg.FetchMaxRetries = parsed
		}
	}
	if v := positiveInt("MAX_PAGES"); v > 0 {
		cfg.MaxPages = v
	}
	if v := positiveInt("EVENT_BUFFER_SIZE"); v > 0 {
		cfg.EventBufferSize = v
	}

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if chatIDStr := os.Getenv("TELEGRAM_CHAT_ID"); chatIDStr != "" {
		if chatID, err := strconv.ParseInt(chatIDStr, 10, 64); err == nil {
			cfg.TelegramChatID = chatID
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if enc := os.Getenv("LOG_ENCODING"); enc == "json" || enc == "console" {
		cfg.LogEncoding = enc
	}

	return cfg, nil
}

// UsesPostgres indica se o backend hospedado está configurado
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

// TelegramEnabled indica se alertas e comandos do Telegram devem ser iniciados
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

func positiveInt(key string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0
	}
	return parsed
}
