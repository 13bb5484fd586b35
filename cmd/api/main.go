package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"emailhub/internal/api"
	"emailhub/internal/config"
	"emailhub/internal/dispatch"
	"emailhub/internal/refine"
	"emailhub/internal/repository"
	"emailhub/internal/service/auth"
	"emailhub/internal/service/email"
	"emailhub/pkg/db"
	"emailhub/pkg/logger"
	"emailhub/pkg/mq"
	"emailhub/pkg/ratelimit"
	redisclient "emailhub/pkg/redis"
)

type stores struct {
	emails email.EmailStore
	users  auth.UserStore
	ready  api.ReadyFunc
	close  func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting emailhub...",
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("db_host", cfg.DB.Host),
		zap.Bool("openai_enabled", cfg.OpenAI.APIKey != ""),
		zap.Bool("smtp_configured", cfg.SMTP.User != "" && cfg.SMTP.Pass != ""),
	)
	if cfg.JWT.Secret == config.DefaultJWTSecret {
		logger.Warn("JWT_SECRET is not set, using the insecure default secret")
	}

	ctx := context.Background()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to init database", zap.Error(err))
	}
	defer st.close()

	// Refiner
	var completer refine.Completer
	if cfg.OpenAI.APIKey != "" {
		completer = refine.NewOpenAIClient(refine.OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			BaseURL:     cfg.OpenAI.BaseURL,
			Temperature: cfg.OpenAI.Temperature,
		}, nil)
	}
	refiner := refine.NewRefiner(completer, logger)

	mailer := dispatch.NewMailer(dispatch.Config{
		Host: cfg.SMTP.Host,
		Port: cfg.SMTP.Port,
		User: cfg.SMTP.User,
		Pass: cfg.SMTP.Pass,
		From: cfg.SMTP.From,
	}, dispatch.NewSandbox("", nil), logger)

	// Events are optional; without a broker the service still sends and stores mail.
	var publisher email.EventPublisher
	if cfg.MQ.URL != "" {
		pub, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			logger.Warn("Failed to init MQ publisher, events disabled", zap.Error(err))
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	var refineLimiter ratelimit.Limiter
	if cfg.RateLimit.RefinePerMinute > 0 {
		refineLimiter = newRefineLimiter(cfg, logger)
	}

	emailService := email.NewService(st.emails, mailer, refiner, publisher, logger)
	authService := auth.NewService(st.users, cfg.JWT.Secret)

	router := api.NewRouter(
		api.NewEmailHandler(emailService, logger),
		api.NewAuthHandler(authService, logger),
		api.RouterConfig{
			JWTSecret:     cfg.JWT.Secret,
			RefineLimiter: refineLimiter,
			Ready:         st.ready,
			Logger:        logger,
		},
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down emailhub gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		logger.Info("HTTP server stopped")
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DB.Driver == db.DriverMySQL {
		conn, err := db.NewMySQLConnection(cfg.DB, logger)
		if err != nil {
			return nil, err
		}
		if err := repository.MigrateMySQL(ctx, conn); err != nil {
			conn.Close()
			return nil, err
		}
		return &stores{
			emails: repository.NewMySQLEmailRepository(conn),
			users:  repository.NewMySQLUserRepository(conn),
			ready:  conn.PingContext,
			close:  func() { _ = conn.Close() },
		}, nil
	}

	pool, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		return nil, err
	}
	if err := repository.MigratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &stores{
		emails: repository.NewEmailRepository(pool),
		users:  repository.NewUserRepository(pool),
		ready:  pool.Ping,
		close:  pool.Close,
	}, nil
}

// newRefineLimiter shares counters through Redis when it is configured and reachable,
// and falls back to per-process limits otherwise.
func newRefineLimiter(cfg *config.Config, logger *zap.Logger) ratelimit.Limiter {
	perMinute := cfg.RateLimit.RefinePerMinute
	if cfg.Redis.Addr != "" {
		rdb, err := redisclient.NewRedisClient(cfg.Redis)
		if err == nil {
			return ratelimit.NewRedisLimiter(rdb, perMinute, time.Minute)
		}
		logger.Warn("Redis unavailable, using in-process rate limiting", zap.Error(err))
	}
	return ratelimit.NewMemoryLimiter(perMinute, time.Minute)
}
