package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/approval"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/booking"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/config"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/discovery"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/discovery/sites"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/graceful"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/orchestrator"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/planner"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/repositories"
	telegramBot "github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/telegram"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/trace"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/transport/httpServer"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/transport/httpServer/handlers"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/transport/httpServer/routers"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/utils/logger/handlers/slogpretty"
	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/utils/logger/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

var Version = "0.1"

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info(
		"starting event orchestrator",
		slog.String("env", cfg.Env),
		slog.String("version", Version),
	)

	traceBus := trace.NewBus(log, cfg.PipelineConfig.TraceTTL, cfg.PipelineConfig.TraceSweepEvery)
	approvalRegistry := approval.NewRegistry(log, cfg.PipelineConfig.ApprovalTTL, cfg.PipelineConfig.ApprovalSweepEvery)
	repositoryService := repositories.New(log, cfg)
	aiService := planner.NewOpenrouterClient(log, cfg)

	channels := buildChannels(log, cfg)

	browserFactory := func() booking.Browser {
		return booking.NewChromeBrowser(log, cfg.BookingConfig.Headless, cfg.BookingConfig.GetStepTimeout())
	}
	executor := booking.NewExecutor(
		log,
		browserFactory,
		booking.Profile{
			FullName: cfg.BookingConfig.Profile.FullName,
			Email:    cfg.BookingConfig.Profile.Email,
			Phone:    cfg.BookingConfig.Profile.Phone,
			Dietary:  cfg.BookingConfig.Profile.Dietary,
		},
		cfg.BookingConfig.MaxCheckoutSteps,
		cfg.BookingConfig.ScreenshotDir,
	)

	orchestratorService := orchestrator.New(
		log, cfg,
		channels,
		aiService,
		executor,
		approvalRegistry,
		traceBus,
		repositoryService,
		nil,
	)

	var tgBot *telegramBot.Bot
	if cfg.BotConfig.Enabled {
		bot, err := telegramBot.NewBot(log, cfg, orchestratorService)
		if err != nil {
			log.Error("cannot start telegram bot, continuing without it", sl.Err(err))
		} else {
			tgBot = bot
			orchestratorService.SetNotifier(tgBot)
		}
	}

	// HTTP Server
	planHandler := handlers.NewPlanHandler(log, orchestratorService, traceBus)
	router := routers.NewRouter(log, planHandler, cfg.HttpServer.Secret)
	httpSrv := httpServer.NewHttpServer(log, router, cfg)

	shutdownOps := map[string]graceful.Operation{
		"Orchestrator service": func(ctx context.Context) error {
			return orchestratorService.Shutdown(ctx)
		},
		"Approval registry": func(ctx context.Context) error {
			return approvalRegistry.Shutdown(ctx)
		},
		"Trace bus": func(ctx context.Context) error {
			return traceBus.Shutdown(ctx)
		},
		"Repository service": func(ctx context.Context) error {
			return repositoryService.Shutdown(ctx)
		},
		"HTTP server": func(ctx context.Context) error {
			return httpSrv.Shutdown(ctx)
		},
	}
	if tgBot != nil {
		shutdownOps["Telegram bot"] = func(ctx context.Context) error {
			return tgBot.Shutdown(ctx)
		}
	}

	maxSecond := 15 * time.Second
	waitShutdown := graceful.GracefulShutdown(
		context.Background(),
		maxSecond,
		shutdownOps,
		log,
	)

	if tgBot != nil {
		tgBot.Start()
	}
	go httpSrv.Listen()

	<-waitShutdown
}

// buildChannels wires one channel per configured discovery source. A channel
// named "cityagenda" scrapes; everything else talks to an events API.
// With nothing configured the API channel still runs in demo mode.
func buildChannels(log *slog.Logger, cfg *config.Config) []discovery.Channel {
	var channels []discovery.Channel

	for _, ch := range cfg.DiscoveryConfig.Channels {
		switch ch.Name {
		case "cityagenda":
			channels = append(channels, discovery.NewScrapeChannel(log, ch.Name, ch.BaseURL, sites.ScrapeCityAgenda))
		default:
			channels = append(channels, discovery.NewEventsAPIChannel(
				log, ch.Name, ch.BaseURL, ch.APIKey,
				cfg.DiscoveryConfig.MaxRetries,
				cfg.DiscoveryConfig.GetTimeout(),
			))
		}
	}

	if len(channels) == 0 {
		channels = append(channels, discovery.NewEventsAPIChannel(
			log, "events-api", "", "",
			cfg.DiscoveryConfig.MaxRetries,
			cfg.DiscoveryConfig.GetTimeout(),
		))
	}

	return channels
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default: // If env config is invalid, set prod settings by default due to security
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
