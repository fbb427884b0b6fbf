package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"peptide-scraper/internal/catalog"
	"peptide-scraper/internal/eventlog"
	"peptide-scraper/internal/models"
	"peptide-scraper/internal/monitor"
)

// escapeHTML escapa caracteres especiais do HTML
func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}

// Listen recebe as atualizações do Telegram até o contexto ser cancelado
func (b *Bot) Listen(ctx context.Context, api *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			// /run pode levar minutos; cada mensagem é tratada à parte
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	parts := strings.Fields(message.Text)
	if len(parts) == 0 {
		return
	}

	command := strings.ToLower(parts[0])
	// Remover @botname se presente
	if idx := strings.Index(command, "@"); idx > 0 {
		command = command[:idx]
	}
	args := parts[1:]
	chatID := message.Chat.ID

	isPublicCommand := command == "/start" || command == "/help"
	if !isPublicCommand && b.chatID != 0 && chatID != b.chatID {
		b.sendText(chatID, "Você não está autorizado a usar este bot.")
		return
	}

	switch command {
	case "/start", "/help":
		b.reply(chatID, helpText)
	case "/run":
		b.handleRun(ctx, chatID, args)
	case "/status":
		b.handleStatus(ctx, chatID)
	case "/prices":
		b.handlePrices(ctx, chatID, args)
	default:
		b.sendText(chatID, "Comando não reconhecido. Use /help para ver os comandos disponíveis.")
	}
}

const helpText = `🤖 <b>Monitor de Preços de Peptídeos</b>

<b>Comandos disponíveis:</b>

<b>/run [fornecedor]</b> - Executar o scraping agora
Exemplo: /run acme

<b>/status</b> - Últimas execuções por fornecedor

<b>/prices &lt;peptídeo&gt;</b> - Preços atuais de um peptídeo
Exemplo: /prices bpc-157

<b>/help</b> - Mostrar esta mensagem de ajuda
`

func (b *Bot) reply(chatID int64, text string) {
	if err := b.sendHTML(chatID, text); err != nil {
		b.logger.Error("erro ao responder comando", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) handleRun(ctx context.Context, chatID int64, args []string) {
	if b.runner == nil {
		b.sendText(chatID, "❌ Execução indisponível.")
		return
	}
	slug := ""
	if len(args) > 0 {
		slug = strings.ToLower(args[0])
	}

	b.sendText(chatID, "⏳ Executando scraping...")
	summary, err := b.runner.Run(ctx, slug)
	if err != nil {
		if errors.Is(err, monitor.ErrNoVendors) {
			b.sendText(chatID, "❌ Nenhum fornecedor ativo encontrado.")
			return
		}
		b.sendText(chatID, fmt.Sprintf("❌ Erro na execução: %v", err))
		return
	}
	b.reply(chatID, formatRunResult(summary))
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	var events []eventlog.Event
	if b.events != nil {
		events = b.events.Recent(10)
	}
	if len(events) == 0 {
		logs, err := b.store.RecentScrapeLogs(ctx, 10)
		if err != nil {
			b.sendText(chatID, fmt.Sprintf("❌ Erro ao buscar execuções: %v", err))
			return
		}
		events = eventsFromLogs(logs)
	}
	b.reply(chatID, formatStatus(events))
}

func (b *Bot) handlePrices(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.sendText(chatID, "❌ Formato incorreto.\n\nUso: /prices <peptídeo>\n\nExemplo: /prices bpc-157")
		return
	}
	peptide, ok := catalog.BySlug(strings.ToLower(args[0]))
	if !ok {
		// Aceita também o nome, como "BPC 157"
		peptide, ok = catalog.FindMatchingPeptide(strings.Join(args, " "))
	}
	if !ok {
		b.sendText(chatID, "❌ Peptídeo não encontrado no catálogo.")
		return
	}

	prices, err := b.store.PricesForPeptide(ctx, peptide.Slug)
	if err != nil {
		b.sendText(chatID, fmt.Sprintf("❌ Erro ao buscar preços: %v", err))
		return
	}
	b.reply(chatID, formatPrices(peptide, prices))
}

func formatRunResult(summary *monitor.RunSummary) string {
	var response strings.Builder
	response.WriteString("📊 <b>Execução concluída</b>\n\n")
	if len(summary.Results) == 0 {
		response.WriteString("Nenhum fornecedor processado.\n")
	}
	for _, r := range summary.Results {
		icon := "✅"
		if len(r.Errors) > 0 {
			icon = "⚠️"
			if r.Found == 0 {
				icon = "❌"
			}
		}
		response.WriteString(fmt.Sprintf("%s <b>%s</b>: %d encontrados, %d atualizados\n", icon, escapeHTML(r.Vendor), r.Found, r.Updated))
	}
	return response.String()
}

// formatRunAlert lista fornecedores parciais ou com falha; retorna "" se todos tiveram sucesso
func formatRunAlert(summary *monitor.RunSummary) string {
	var response strings.Builder
	count := 0
	for _, r := range summary.Results {
		status := models.DeriveStatus(r.Found, r.Errors)
		if status == models.StatusSuccess {
			continue
		}
		count++
		response.WriteString(fmt.Sprintf("• <b>%s</b> (%s, %d encontrados)\n", escapeHTML(r.Vendor), status, r.Found))
		response.WriteString(fmt.Sprintf("  %s\n", escapeHTML(models.JoinErrors(r.Errors))))
	}
	if count == 0 {
		return ""
	}
	return fmt.Sprintf("🚨 <b>%d fornecedor(es) com problemas</b>\nExecução %s\n\n%s", count, summary.RunID, response.String())
}

func formatStatus(events []eventlog.Event) string {
	if len(events) == 0 {
		return "📋 Nenhuma execução registrada ainda."
	}

	var response strings.Builder
	response.WriteString("📋 <b>Últimas execuções:</b>\n\n")
	for _, e := range events {
		vendor := e.Vendor
		if vendor == "" {
			vendor = "execução"
		}
		response.WriteString(fmt.Sprintf("%s <b>%s</b> %s", statusIcon(e.Status, e.Level), escapeHTML(vendor), e.Status))
		if e.Status != "" {
			response.WriteString(fmt.Sprintf(" (%d/%d)", e.Updated, e.Found))
		}
		if !e.CreatedAt.IsZero() {
			response.WriteString(fmt.Sprintf(" 🕐 %s", e.CreatedAt.Local().Format("02/01/2006 15:04")))
		}
		response.WriteString("\n")
		if e.Message != "" {
			response.WriteString(fmt.Sprintf("  %s\n", escapeHTML(e.Message)))
		}
	}
	return response.String()
}

func statusIcon(status string, level eventlog.Level) string {
	switch {
	case status == string(models.StatusSuccess):
		return "✅"
	case status == string(models.StatusPartial):
		return "⚠️"
	case level == eventlog.LevelWarn:
		return "⚠️"
	default:
		return "❌"
	}
}

func eventsFromLogs(logs []models.ScrapeLog) []eventlog.Event {
	events := make([]eventlog.Event, 0, len(logs))
	for _, l := range logs {
		events = append(events, eventlog.Event{
			RunID:      l.RunID,
			Vendor:     l.VendorName,
			Status:     string(l.Status),
			Found:      l.ProductsFound,
			Updated:    l.ProductsUpdated,
			Message:    l.ErrorMessage,
			DurationMS: l.DurationMS,
			CreatedAt:  l.CreatedAt,
		})
	}
	return events
}

func formatPrices(peptide catalog.TargetPeptide, prices []models.PeptidePrice) string {
	name := escapeHTML(peptide.Name)
	if len(prices) == 0 {
		return fmt.Sprintf("📋 Nenhum preço registrado para <b>%s</b>.", name)
	}

	var response strings.Builder
	response.WriteString(fmt.Sprintf("💰 <b>Preços de %s:</b>\n\n", name))
	for _, p := range prices {
		stock := "✅ em estoque"
		if !p.InStock {
			stock = "❌ esgotado"
		}
		response.WriteString(fmt.Sprintf("<b>$%s</b> - %s (%s)\n", p.Price.StringFixed(2), escapeHTML(p.VendorName), stock))
		if !p.LastVerifiedAt.IsZero() {
			response.WriteString(fmt.Sprintf("🕐 Última verificação: %s\n", p.LastVerifiedAt.Local().Format("02/01/2006 15:04")))
		}
	}
	return response.String()
}
