package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"peptide-scraper/internal/api"
	"peptide-scraper/internal/monitor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Inicia a API HTTP, o agendamento e o bot do Telegram",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	handler := api.NewHandler(api.Deps{
		Runner: a.monitor,
		Store:  a.store,
		Events: a.events,
		Logger: a.logger,
	})
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	if a.cfg.ScrapeSchedule != "" {
		scheduler, err := monitor.NewScheduler(ctx, a.monitor, a.cfg.ScrapeSchedule)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
		a.logger.Info("agendamento ativo", zap.String("schedule", a.cfg.ScrapeSchedule))
	}

	if a.bot != nil {
		go a.bot.Listen(ctx, a.tgAPI)
		a.logger.Info("bot do Telegram ouvindo comandos")
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("servidor HTTP iniciado", zap.String("addr", a.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("encerrando...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
