package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	discordapi "github.com/bbn-music/community-bot/internal/api/discord"
	httptransport "github.com/bbn-music/community-bot/internal/api/http"
	"github.com/bbn-music/community-bot/internal/api/http/handlers"
	"github.com/bbn-music/community-bot/internal/auth"
	"github.com/bbn-music/community-bot/internal/config"
	"github.com/bbn-music/community-bot/internal/events"
	"github.com/bbn-music/community-bot/internal/gateway"
	"github.com/bbn-music/community-bot/internal/observability"
	"github.com/bbn-music/community-bot/internal/persistence"
	"github.com/bbn-music/community-bot/internal/repository"
	"github.com/bbn-music/community-bot/internal/service"
	"github.com/bbn-music/community-bot/internal/worker"
)

const (
	creationLockTTL    = 30 * time.Second
	interactionTimeout = 2 * time.Minute
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "community-bot",
		Short:         "BBN community Discord bot with ticket support and coin economy",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	root.AddCommand(newMigrateCommand(), newCommandsCommand())
	return root
}

// bootstrap loads configuration and the logger shared by every subcommand.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func newSession(cfg config.DiscordConfig) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return session, nil
}

func run(parent context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Error("failed to run migrations", zap.Error(err))
			return err
		}
	}

	redis, err := persistence.NewRedis(cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect redis", zap.Error(err))
		return err
	}
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(dispatcher, logger, metrics)
	sink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	sink.Register(dispatcher)
	defer sink.Close() //nolint:errcheck

	session, err := newSession(cfg.Discord)
	if err != nil {
		return err
	}
	gw := gateway.NewDiscord(session, cfg.Discord.GuildID, logger)

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	transcriptRepo := repository.NewTranscriptRepository(pool)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.LinkTTL())

	scheduler := worker.NewScheduler(ctx, logger)
	defer stopScheduler(cancel, scheduler)

	tickets := service.NewTicketService(service.TicketDependencies{
		Gateway:        gw,
		TicketRepo:     ticketRepo,
		HistoryRepo:    historyRepo,
		UserRepo:       repository.NewUserRepository(pool),
		TranscriptRepo: transcriptRepo,
		Lock:           repository.NewRedisCreationLock(redis.Client, creationLockTTL),
		Scheduler:      scheduler,
		Links:          auth.NewTranscriptLinks(tokens, cfg.Auth.TranscriptBaseURL),
		Dispatcher:     dispatcher,
		Config:         cfg.Discord,
		Logger:         logger,
	})
	economy := service.NewEconomyService(service.EconomyDependencies{
		BalanceRepo: repository.NewBalanceRepository(pool),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Gateway: gw,
		Tickets: tickets,
		Config:  cfg.Discord,
		Logger:  logger,
	})

	router := discordapi.NewRouter(discordapi.Dependencies{
		Gateway:   gw,
		Tickets:   tickets,
		Ledger:    economy,
		Steam:     service.NewSteamService(cfg.Steam.APIBaseURL, cfg.Steam.Timeout(), logger),
		Community: service.NewCommunityService(gw, dispatcher, cfg.Discord, logger),
		Config:    cfg.Discord,
		Logger:    logger,
		Metrics:   metrics,
		Timeout:   interactionTimeout,
	})
	router.Bind(ctx, session)
	discordapi.NewEventHandler(gw, notifications, logger, metrics).Bind(ctx, session)
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.Info("discord ready", zap.String("user", gateway.UserTag(r.User)))
	})

	if err := session.Open(); err != nil {
		logger.Error("failed to open discord session", zap.Error(err))
		return err
	}
	defer session.Close() //nolint:errcheck

	if _, err := gw.RegisterCommands(ctx, discordapi.Commands()); err != nil {
		logger.Warn("slash command registration failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Metrics:     handlers.NewMetricsHandler(metrics),
		Transcripts: handlers.NewTranscriptsHandler(transcriptRepo, historyRepo),
		Tokens:      tokens,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Error("fiber listen", zap.Error(err))
			cancel()
		}
	}()

	waitForShutdown(ctx, logger)

	_ = app.Shutdown()
	return nil
}

// stopScheduler cancels the root context before waiting, so pending view
// grants are dropped instead of delaying exit.
func stopScheduler(cancel context.CancelFunc, scheduler *worker.Scheduler) {
	cancel()
	scheduler.Wait()
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}
}
