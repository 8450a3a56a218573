// cmd/notifier/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"job-notifier/internal/common/auth"
	"job-notifier/internal/common/aws"
	"job-notifier/internal/common/camunda"
	"job-notifier/internal/common/config"
	"job-notifier/internal/common/database"
	"job-notifier/internal/common/logger"
	"job-notifier/internal/common/observability"
	"job-notifier/internal/common/resend"
	"job-notifier/internal/common/telegram"
	"job-notifier/internal/identity"
	"job-notifier/internal/server"
	notify "job-notifier/internal/workers/notifications/notify-job-subscribers"
)

const (
	providerTimeout = 15 * time.Second
	shutdownTimeout = 30 * time.Second
)

var storeRetry = &camunda.RetryConfig{
	MaxRetries: 15,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console", "")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"env":     cfg.App.Environment,
	})

	log.Info("Starting job notifier...", map[string]interface{}{"version": cfg.App.Version})

	obs := observability.New(cfg.App.Name, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pg *database.PostgresClient
	err = camunda.RetryWithBackoff(ctx, storeRetry, log, "PostgreSQL connection", func() error {
		c, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			return err
		}
		pg = c
		return nil
	})
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	log.Info("PostgreSQL connected successfully", nil)

	rdb := database.NewRedis(cfg.Database.Redis)
	if rdb != nil {
		if err := rdb.Ping(ctx); err != nil {
			log.Warn("redis unreachable, continuing without cache", map[string]interface{}{"error": err.Error()})
		} else {
			log.Info("Redis connected successfully", nil)
		}
		defer rdb.Close()
	}

	deps := buildDependencies(ctx, cfg, pg, rdb, log)
	deps.Observability = obs

	handler := notify.NewHandler(notify.LoadConfig(cfg), deps, log)

	var zeebeWorker *camunda.Worker
	if cfg.Camunda.Enabled {
		zeebeClient, err := camunda.NewClient(ctx, cfg.Camunda, log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebeClient.Close()
		log.Info("Zeebe client connected successfully", nil)

		zeebeWorker = camunda.StartWorker(
			zeebeClient,
			notify.TaskType,
			config.GetWorkerConfig(cfg, notify.TaskType),
			handler.Handle,
			log,
		)
	}

	srv := server.NewServer(cfg.Server, handler, pg, log)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("HTTP server failed", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received, stopping...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down HTTP server", map[string]interface{}{"error": err.Error()})
	}
	zeebeWorker.Stop()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Job notifier stopped", nil)
}

// buildDependencies selects the store, matcher, identity source and
// providers from configuration. A provider without credentials is left nil
// and its channel is skipped.
func buildDependencies(ctx context.Context, cfg *config.Config, pg *database.PostgresClient, rdb *database.RedisClient, log logger.Logger) notify.Dependencies {
	n := cfg.Notifications
	store := notify.NewSQLStore(pg.DB)

	deps := notify.Dependencies{
		Profiles:      store,
		Notifications: store,
		Matcher:       notify.PolicyMatcher{},
	}

	if n.Matching.Source == config.MatchingSourceDatabase {
		deps.Matcher = notify.NewDatabaseMatcher(pg.DB)
	}

	var resolver identity.Resolver
	switch n.Identity.Source {
	case config.IdentitySourceKeycloak:
		kc := cfg.Auth.Keycloak
		resolver = identity.NewKeycloakResolver(auth.NewKeycloakClient(kc.URL, kc.Realm, kc.ClientID, kc.ClientSecret))
	default:
		resolver = identity.NewSQLResolver(pg.DB)
	}
	if rdb != nil {
		resolver = identity.NewCachedResolver(resolver, rdb.Client, time.Duration(n.Identity.CacheTTL)*time.Second, log)
	}
	deps.Identity = resolver

	if n.TelegramEnabled() {
		deps.Telegram = notify.BotSender{Bot: telegram.NewBot(n.Telegram.BotToken, n.Telegram.APIBaseURL, providerTimeout)}
	} else {
		log.Warn("telegram bot token not configured, telegram channel disabled", nil)
	}

	if n.EmailEnabled() {
		switch n.Email.Provider {
		case config.EmailProviderSES:
			ses, err := aws.NewSESClient(ctx, n.AWS.Region)
			if err != nil {
				log.Error("failed to create SES client, email channel disabled", map[string]interface{}{"error": err.Error()})
			} else {
				deps.Email = notify.SESSender{Client: ses}
			}
		default:
			deps.Email = notify.ResendSender{Client: resend.NewClient(n.Email.APIKey, n.Email.APIBaseURL, providerTimeout)}
		}
	} else {
		log.Warn("email provider not configured, email channel disabled", map[string]interface{}{"provider": n.Email.Provider})
	}

	if n.Dedup.Enabled && rdb != nil {
		deps.Dedup = notify.NewRedisDeduper(rdb.Client, time.Duration(n.Dedup.TTL)*time.Second, log)
	}

	return deps
}
