package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/bot"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket hub and Discord bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runtime holds what every subcommand needs: configuration, a logger and the
// selected store.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
	store  *repository.Store
}

func bootstrap(ctx context.Context, runMigrations bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	if cfg.Auth.SessionSecretGenerated {
		logger.Warn("SESSION_SECRET not set; using a random per-process secret, sessions end on restart")
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	store := repository.NewMemoryStore()
	if pg.Enabled() {
		if runMigrations && cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		store = repository.NewPostgresStore(pg.Pool)
	}

	return &runtime{cfg: cfg, logger: logger, pg: pg, store: store}, nil
}

func (r *runtime) close() {
	r.pg.Close()
	_ = r.logger.Sync()
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger, store := rt.cfg, rt.logger, rt.store

	var (
		redis    *persistence.Redis
		sessions auth.SessionStore = auth.NewMemorySessionStore()
	)
	if cfg.Redis.Addr != "" {
		redis = persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		sessions = redis
	} else {
		logger.Warn("REDIS_ADDR not provided; login state and revocations are kept in memory")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	hub := events.NewHub(logger, metrics)
	hub.Subscribe(dispatcher)

	identityService := service.NewIdentityService(store.DiscordUsers)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   store.Tickets,
		MessageRepo:  store.Messages,
		CategoryRepo: store.Categories,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	categoryService := service.NewCategoryService(store.Categories, dispatcher, logger)
	adminService := service.NewAdminService(store)

	tokens := auth.NewTokenManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL())
	authDeps := service.AuthDependencies{
		UserRepo:   store.Users,
		Identities: identityService,
		Tokens:     tokens,
		Sessions:   sessions,
		Policy:     auth.NewAdminPolicy(cfg.Admin, cfg.Discord.GuildID),
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	}
	if cfg.Discord.OAuthEnabled() {
		authDeps.Provider = auth.NewDiscordOAuthClient(auth.DiscordOAuthConfig{
			ClientID:     cfg.Discord.ClientID,
			ClientSecret: cfg.Discord.ClientSecret,
			RedirectURL:  cfg.Discord.CallbackURL,
		})
	} else {
		logger.Warn("DISCORD_CLIENT_ID or DISCORD_CLIENT_SECRET missing; Discord login disabled")
	}
	authService := service.NewAuthService(authDeps)
	ensureBootstrapAdmin(ctx, authService, cfg.Auth, logger)

	notificationDeps := service.NotificationDependencies{
		Dispatcher:      dispatcher,
		BotSettingsRepo: store.BotSettings,
		AppURL:          cfg.App.URL,
		Logger:          logger,
	}
	discordBot, posts := startBot(ctx, cfg, logger, metrics, ticketService, categoryService, identityService)
	if discordBot != nil {
		defer discordBot.Close()
	}
	if posts != nil {
		notificationDeps.Poster = posts
		// Queued posts are flushed before the bot goes offline.
		defer func() {
			cancel()
			<-posts.Done()
		}()
		go posts.Run(ctx)
	}
	service.NewNotificationService(notificationDeps).RegisterHandlers()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, rt.pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Categories:     handlers.NewCategoriesHandler(categoryService),
		Admin:          handlers.NewAdminHandler(adminService),
		Auth:           handlers.NewAuthHandler(authService, cfg.Auth.SecureCookies),
		WS:             handlers.NewWSHandler(hub, logger),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Users, store.DiscordUsers, sessions, logger),
		Metrics:        metrics.Handler(),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("fiber listen: %w", err)
		}
	case <-waitForShutdown(ctx, logger):
	}

	cancel()
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}

// ensureBootstrapAdmin seeds the operator from ADMIN_USERNAME and
// ADMIN_PASSWORD. A rejected value only leaves the operator uncreated.
func ensureBootstrapAdmin(ctx context.Context, authService *service.AuthService, cfg config.AuthConfig, logger *zap.Logger) {
	if err := authService.EnsureBootstrapAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Warn("bootstrap operator not created", zap.String("username", cfg.AdminUsername), zap.Error(err))
	}
}

// startBot brings the Discord bot online when configured. Any failure is
// logged and leaves the bot disabled; the API keeps running.
func startBot(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
	tickets *service.TicketService,
	categories *service.CategoryService,
	identities *service.IdentityService,
) (*bot.Bot, *worker.ChannelPostWorker) {
	if !cfg.Discord.BotEnabled() {
		logger.Warn("discord bot disabled", zap.Strings("missing", cfg.Discord.MissingBotSettings()))
		return nil, nil
	}

	handler := bot.NewCommandHandler(bot.HandlerDependencies{
		Tickets:    tickets,
		Categories: categories,
		Identities: identities,
		AppURL:     cfg.App.URL,
		Metrics:    metrics,
		Logger:     logger,
	})
	discordBot, err := bot.New(cfg.Discord, handler, categories, logger)
	if err != nil {
		logger.Warn("discord bot disabled", zap.Error(err))
		return nil, nil
	}
	if err := discordBot.Start(ctx); err != nil {
		logger.Warn("discord bot failed to start; continuing without it", zap.Error(err))
		return nil, nil
	}
	return discordBot, worker.NewChannelPostWorker(discordBot, 0, logger)
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("shutting down", zap.String("signal", sig.String()))
		case <-ctx.Done():
		}
	}()
	return done
}
