package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"peptide-scraper/internal/eventlog"
	"peptide-scraper/internal/models"
	"peptide-scraper/internal/monitor"
)

// Init inicializa o bot do Telegram
func Init(token string, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN não configurado. Verifique o arquivo .env")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		if err.Error() == "Unauthorized" {
			return nil, errors.New("token do Telegram inválido ou expirado. Verifique o TELEGRAM_BOT_TOKEN no arquivo .env")
		}
		return nil, fmt.Errorf("erro ao conectar com Telegram: %w", err)
	}

	api.Debug = false
	logger.Info("bot autorizado", zap.String("username", api.Self.UserName))
	return api, nil
}

// Sender envia mensagens; *tgbotapi.BotAPI o implementa
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Runner dispara uma execução
type Runner interface {
	Run(ctx context.Context, vendorSlug string) (*monitor.RunSummary, error)
}

// Reader consulta preços e logs gravados
type Reader interface {
	PricesForPeptide(ctx context.Context, slug string) ([]models.PeptidePrice, error)
	RecentScrapeLogs(ctx context.Context, limit int) ([]models.ScrapeLog, error)
}

// Bot atende comandos e envia alertas de execução
type Bot struct {
	sender Sender
	chatID int64
	runner Runner
	store  Reader
	events *eventlog.Buffer
	logger *zap.Logger
}

// New cria o Bot. Com chatID diferente de zero, comandos de outros chats
// são recusados e os alertas vão para esse chat.
func New(sender Sender, chatID int64, store Reader, events *eventlog.Buffer, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{sender: sender, chatID: chatID, store: store, events: events, logger: logger}
}

// SetRunner liga o bot ao orquestrador, que por sua vez usa o bot como Notifier
func (b *Bot) SetRunner(r Runner) {
	b.runner = r
}

// NotifyRun envia um alerta listando os fornecedores com falha. Execuções
// totalmente bem-sucedidas não geram mensagem.
func (b *Bot) NotifyRun(ctx context.Context, summary *monitor.RunSummary) error {
	if b.chatID == 0 {
		return nil
	}
	text := formatRunAlert(summary)
	if text == "" {
		return nil
	}
	return b.sendHTML(b.chatID, text)
}

// sendHTML envia com formatação HTML e repete sem formatação se o Telegram recusar
func (b *Bot) sendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Warn("erro ao enviar mensagem com HTML", zap.Error(err))
		msg.ParseMode = ""
		if _, err := b.sender.Send(msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn("erro ao enviar mensagem", zap.Error(err))
	}
}
