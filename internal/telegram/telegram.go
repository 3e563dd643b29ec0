package telegramBot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ApprovalResolver forwards an approve/decline decision for a run. The
// second return value distinguishes an unknown run from one already decided.
type ApprovalResolver interface {
	ResolveApproval(runID string, approved bool) (resolved, known bool)
}

// Bot is the Telegram approval surface. Pending plans are pushed to the
// configured channels with an inline approve/decline keyboard; button
// presses resolve the run's approval gate.
type Bot struct {
	log          *slog.Logger
	cfg          *config.Config
	tgbot        *tgbotapi.BotAPI
	resolver     ApprovalResolver
	shutdownChan chan struct{}
}

func NewBot(log *slog.Logger, cfg *config.Config, resolver ApprovalResolver) (*Bot, error) {
	op := "telegramBot.NewBot()"

	tgbot, err := tgbotapi.NewBotAPI(cfg.BotConfig.TgbotApiToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.With(slog.String("op", op)).Info("telegram bot authorized", slog.String("account", tgbot.Self.UserName))

	return &Bot{
		log:          log,
		cfg:          cfg,
		tgbot:        tgbot,
		resolver:     resolver,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start begins long polling for updates. Only callback queries matter; any
// other update gets a short usage hint.
func (bot *Bot) Start() {
	op := "telegramBot.Bot.Start()"
	log := bot.log.With(slog.String("op", op))

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := bot.tgbot.GetUpdatesChan(updateConfig)

	go func() {
		log.Info("telegram bot started")
		for {
			select {
			case <-bot.shutdownChan:
				bot.tgbot.StopReceivingUpdates()
				log.Info("telegram bot stopped")
				return
			case update := <-updates:
				if update.CallbackQuery != nil {
					bot.handleCallbackQuery(&update)
					continue
				}
				if update.Message != nil && update.Message.IsCommand() {
					bot.commandHandler(&update)
				}
			}
		}
	}()
}

func (bot *Bot) commandHandler(update *tgbotapi.Update) {
	op := "telegramBot.Bot.commandHandler()"
	log := bot.log.With(slog.String("op", op))

	msg := update.Message
	var replyText string

	switch msg.Command() {
	case "start":
		replyText = fmt.Sprintf("Hi, %s! I post planned itineraries here for approval.", msg.From.UserName)
	default:
		replyText = "I don't know this command"
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, replyText)
	reply.ReplyToMessageID = msg.MessageID
	if _, err := bot.tgbot.Send(reply); err != nil {
		log.Error("failed to send reply", slog.String("error", err.Error()))
	}
}

// Shutdown stops the polling loop.
func (bot *Bot) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit telegram bot: %w", ctx.Err())
	default:
		close(bot.shutdownChan)
		return nil
	}
}
