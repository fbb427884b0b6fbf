package main

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"peptide-scraper/config"
	"peptide-scraper/internal/bot"
	"peptide-scraper/internal/database"
	"peptide-scraper/internal/eventlog"
	"peptide-scraper/internal/fetch"
	"peptide-scraper/internal/logger"
	"peptide-scraper/internal/monitor"
	"peptide-scraper/internal/scraper"
	"peptide-scraper/internal/vendors"
)

// app reúne os componentes montados a partir da configuração
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    database.Store
	registry *vendors.Registry
	events   *eventlog.Buffer
	monitor  *monitor.Monitor
	bot      *bot.Bot
	tgAPI    *tgbotapi.BotAPI
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := database.Open(ctx, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.UsesPostgres() {
		log.Info("usando Postgres")
	} else {
		log.Info("usando sqlite", zap.String("path", cfg.DatabasePath))
	}

	a := &app{
		cfg:      cfg,
		logger:   log,
		store:    store,
		registry: vendors.NewRegistry(store, log),
		events:   eventlog.NewBuffer(cfg.EventBufferSize),
	}

	var notifier monitor.Notifier
	if cfg.TelegramEnabled() {
		api, err := bot.Init(cfg.TelegramBotToken, log)
		if err != nil {
			// Sem Telegram o scraping continua funcionando
			log.Warn("telegram desativado", zap.Error(err))
		} else {
			a.tgAPI = api
			a.bot = bot.New(api, cfg.TelegramChatID, store, a.events, log)
			notifier = a.bot
		}
	}

	fetcher := fetch.New(fetch.Options{
		Timeout:     cfg.FetchTimeout,
		MaxRetries:  cfg.FetchMaxRetries,
		APIKey:      cfg.ScrapingAPIKey,
		ServiceName: cfg.ScrapingServiceName,
		Logger:      log,
	})
	s := scraper.New(fetcher, scraper.Options{MaxPages: cfg.MaxPages, Logger: log})

	a.monitor = monitor.New(a.registry, store, s, monitor.Options{
		Logger:   log,
		Events:   a.events,
		Notifier: notifier,
		// Execuções sobrevivem à desconexão do cliente, mas não ao SIGTERM
		BaseContext: ctx,
	})
	if a.bot != nil {
		a.bot.SetRunner(a.monitor)
	}
	return a, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("erro ao fechar banco de dados", zap.Error(err))
	}
	a.logger.Sync()
}
