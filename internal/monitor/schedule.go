package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler dispara execuções completas segundo uma expressão cron (com segundos)
type Scheduler struct {
	cron    *cron.Cron
	monitor *Monitor
	logger  *zap.Logger
	baseCtx context.Context
}

// NewScheduler registra a execução agendada. A expressão usa seis campos,
// por exemplo "0 0 */6 * * *".
func NewScheduler(baseCtx context.Context, m *Monitor, spec string) (*Scheduler, error) {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		monitor: m,
		logger:  m.logger,
		baseCtx: baseCtx,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	summary, err := s.monitor.Run(s.baseCtx, "")
	if err != nil {
		if errors.Is(err, ErrNoVendors) {
			s.logger.Warn("execução agendada sem fornecedores ativos")
			return
		}
		s.logger.Error("erro na execução agendada", zap.Error(err))
		return
	}
	s.logger.Info("execução agendada concluída",
		zap.String("run_id", summary.RunID),
		zap.Int("vendors", len(summary.Results)))
}

// Start inicia o agendamento em background
func (s *Scheduler) Start() {
	s.logger.Info("cron iniciado")
	s.cron.Start()
}

// Stop para o agendamento e espera a execução em andamento terminar
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cron parado")
}
