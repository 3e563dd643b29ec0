package telegramBot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/planner"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// NotifyApprovalRequested sends the plan digest with an approve/decline
// keyboard to every configured channel.
func (bot *Bot) NotifyApprovalRequested(runID string, itinerary domain.Itinerary, summary planner.Summary) error {
	op := "telegramBot.Bot.NotifyApprovalRequested()"
	log := bot.log.With(
		slog.String("op", op),
		slog.String("runID", runID),
	)

	messageText := formatPlanMessage(itinerary, summary)
	keyboard := createApprovalKeyboard(runID)

	var lastErr error
	for _, channelID := range bot.cfg.BotConfig.ChannelIDs {
		msg := tgbotapi.NewMessage(channelID, messageText)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = keyboard

		if _, err := bot.tgbot.Send(msg); err != nil {
			log.Error("failed to send plan to channel",
				slog.Int64("channelID", channelID),
				slog.String("error", err.Error()),
			)
			lastErr = err
			continue
		}
		log.Debug("plan sent to channel", slog.Int64("channelID", channelID))
	}

	if lastErr != nil {
		return fmt.Errorf("%s: %w", op, lastErr)
	}
	return nil
}

func (bot *Bot) handleCallbackQuery(update *tgbotapi.Update) {
	op := "telegramBot.Bot.handleCallbackQuery()"
	log := bot.log.With(slog.String("op", op))

	callback := update.CallbackQuery
	data := callback.Data

	// Ack immediately so the button stops showing a spinner.
	callbackConfig := tgbotapi.NewCallback(callback.ID, "")
	callbackConfig.ShowAlert = false
	if _, err := bot.tgbot.Request(callbackConfig); err != nil {
		log.Error("failed to send callback response", slog.String("error", err.Error()))
	}

	if after, ok := strings.CutPrefix(data, "approve_"); ok {
		bot.handleDecision(callback, after, true)
		return
	}
	if after, ok := strings.CutPrefix(data, "decline_"); ok {
		bot.handleDecision(callback, after, false)
		return
	}
}

func (bot *Bot) handleDecision(callback *tgbotapi.CallbackQuery, runID string, approved bool) {
	op := "telegramBot.Bot.handleDecision()"
	log := bot.log.With(
		slog.String("op", op),
		slog.String("runID", runID),
		slog.Bool("approved", approved),
	)

	resolved, known := bot.resolver.ResolveApproval(runID, approved)

	switch {
	case !known:
		log.Warn("decision for unknown run")
		bot.sendCallbackResponse(callback, "❌ Unknown plan")
	case !resolved:
		log.Info("decision arrived after resolution")
		bot.sendCallbackResponse(callback, "This plan was already decided")
	case approved:
		log.Info("plan approved")
		bot.sendCallbackResponse(callback, "✅ Plan approved, booking now")
	default:
		log.Info("plan declined")
		bot.sendCallbackResponse(callback, "❌ Plan declined")
	}

	if resolved {
		bot.removeApprovalKeyboard(callback)
	}
}

func formatPlanMessage(itinerary domain.Itinerary, summary planner.Summary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>%s</b>\n", itinerary.Name)
	if itinerary.Vibe != "" {
		fmt.Fprintf(&sb, "<i>%s</i>\n", itinerary.Vibe)
	}
	sb.WriteString("\n")

	for _, item := range itinerary.Items {
		marker := "•"
		if item.IsMainEvent {
			marker = "⭐"
		}
		fmt.Fprintf(&sb, "%s %s-%s <b>%s</b>",
			marker,
			item.Scheduled.Start.Format("15:04"),
			item.Scheduled.End.Format("15:04"),
			item.Event.Name,
		)
		if item.Event.Location.Name != "" {
			fmt.Fprintf(&sb, " @ %s", item.Event.Location.Name)
		}
		if item.CostPerPerson > 0 {
			fmt.Fprintf(&sb, " (%.0f/person)", item.CostPerPerson)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\n💰 Total: %.2f (%s)\n", itinerary.TotalCost, summary.BudgetStatus)

	if len(itinerary.Warnings) > 0 {
		fmt.Fprintf(&sb, "\n⚠️ %d warning(s):\n", len(itinerary.Warnings))
		for _, w := range itinerary.Warnings {
			fmt.Fprintf(&sb, "  • %s\n", w)
		}
	}

	for _, tip := range summary.Tips {
		fmt.Fprintf(&sb, "💡 %s\n", tip)
	}

	return sb.String()
}

func createApprovalKeyboard(runID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", "approve_"+runID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Decline", "decline_"+runID),
		),
	)
}

func (bot *Bot) sendCallbackResponse(callback *tgbotapi.CallbackQuery, text string) {
	callbackConfig := tgbotapi.NewCallback(callback.ID, text)
	callbackConfig.ShowAlert = true
	_, _ = bot.tgbot.Request(callbackConfig)
}

func (bot *Bot) removeApprovalKeyboard(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	editMsg := tgbotapi.NewEditMessageReplyMarkup(
		callback.Message.Chat.ID,
		callback.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	_, _ = bot.tgbot.Send(editMsg)
}
