package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go-gin-event-management/config"
	"go-gin-event-management/internal/auth"
	"go-gin-event-management/internal/cache"
	"go-gin-event-management/internal/database"
	"go-gin-event-management/internal/handler"
	"go-gin-event-management/internal/metrics"
	"go-gin-event-management/internal/middleware"
	"go-gin-event-management/internal/queue"
	"go-gin-event-management/internal/repository"
	"go-gin-event-management/internal/service"
	"go-gin-event-management/internal/worker"
	"go-gin-event-management/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const poolStatsInterval = 15 * time.Second

var (
	serverPort  string
	skipMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the registration activity worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if serverPort != "" {
			cfg.Server.Port = serverPort
		}
		return runServer(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverPort, "port", "", "server port, overrides PORT")
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on startup")
}

func runServer(ctx context.Context, cfg *config.Config) error {
	log := logger.WithComponent("server")

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if !skipMigrate {
		if err := database.MigrateUp(cfg.Database.DSN()); err != nil {
			return err
		}
	}

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer rdb.Close()

	activityQueue, err := newActivityQueue(ctx, cfg.Queue, rdb)
	if err != nil {
		return err
	}

	transactor := repository.NewTransactor(pool)
	userRepo := repository.NewUserRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)

	var eventOpts []service.EventServiceOption
	if cfg.Events.CancellationCutoff > 0 {
		eventOpts = append(eventOpts, service.WithCancellationPolicy(service.CutoffPolicy{Window: cfg.Events.CancellationCutoff}))
	}
	eventService := service.NewEventService(transactor, eventRepo, activityRepo, activityQueue, eventOpts...)
	userService := service.NewUserService(
		userRepo,
		auth.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenExpiry, cfg.Auth.TokenIssuer),
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		cache.NewRedisTokenDenylist(rdb),
	)
	activityWorker := worker.NewActivityWorker(service.NewActivityService(activityRepo), activityQueue, cfg.Queue.MaxRetryCount)

	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.AuthPerMinute)
	router := handler.NewRouter(
		handler.RouterConfig{
			CORSOrigins:  cfg.Server.CORSOrigins,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			CookieName:   cfg.Auth.CookieName,
		},
		handler.NewEventHandler(eventService),
		handler.NewUserHandler(userService, handler.CookieOptions{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Server.IsProduction(),
		}),
		userService,
		authLimiter,
	)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return activityWorker.Run(gctx)
	})
	g.Go(func() error {
		metrics.CollectPoolStats(gctx, pool, poolStatsInterval)
		return nil
	})
	g.Go(func() error {
		authLimiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}

// newActivityQueue 依 ACTIVITY_QUEUE 選擇 Redis Stream 或 in-memory 實作
func newActivityQueue(ctx context.Context, cfg config.QueueConfig, rdb *redis.Client) (queue.ActivityQueue, error) {
	switch cfg.Driver {
	case "memory":
		return queue.NewMemoryActivityQueue(cfg.BufferSize), nil
	case "redis", "":
		q, err := queue.NewRedisStreamActivityQueue(ctx, rdb, cfg.ConsumerID, &queue.RedisStreamActivityQueueConfig{
			ClaimMinIdleTime: cfg.ClaimMinIdleTime,
			MaxRetryCount:    cfg.MaxRetryCount,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize activity queue: %w", err)
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown activity queue driver %q", cfg.Driver)
	}
}
