// File: cmd/mfa-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/vikaspotluri123/mfa-service/internal/config"
	repoPostgres "github.com/vikaspotluri123/mfa-service/internal/domain/repository/postgres"
	repoRedis "github.com/vikaspotluri123/mfa-service/internal/domain/repository/redis"
	"github.com/vikaspotluri123/mfa-service/internal/domain/service"
	"github.com/vikaspotluri123/mfa-service/internal/events/kafka"
	httpHandler "github.com/vikaspotluri123/mfa-service/internal/handler/http"
	infraPostgres "github.com/vikaspotluri123/mfa-service/internal/infrastructure/database/postgres"
	"github.com/vikaspotluri123/mfa-service/internal/infrastructure/security"
	"github.com/vikaspotluri123/mfa-service/internal/utils/email"
	"github.com/vikaspotluri123/mfa-service/internal/utils/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if cfg.Database.AutoMigrate {
		log.Info("Running database migrations")
		m, err := migrate.New("file://"+cfg.Database.MigrationsPath, cfg.Database.DSN())
		if err != nil {
			log.Fatal("Failed to create migration instance", zap.Error(err))
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
		log.Info("Migrations applied successfully")
	}

	dbPool, err := infraPostgres.NewDBPool(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize PostgreSQL connection pool", zap.Error(err))
	}
	defer dbPool.Close()

	factorRepo := repoPostgres.NewPgxFactorRepository(dbPool)
	settingsRepo := repoPostgres.NewPgxSettingsRepository(dbPool)
	userRepo := repoPostgres.NewPgxUserRepository(dbPool)

	redisClient, err := repoRedis.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to initialize Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	challengeStore := repoRedis.NewChallengeCache(redisClient, log)
	sessionStore := repoRedis.NewSessionTrustCache(redisClient, log)

	var events kafka.Publisher = kafka.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Fatal("Failed to initialize Kafka producer", zap.Error(err))
		}
		events = producer
	}
	defer events.Close()

	totpService := security.NewPquernaTOTPService(cfg.MFA.TOTPIssuerName)
	encryptionService := security.NewAESGCMEncryptionService()
	mailer := email.NewClient(&cfg.Email, log)

	secretStore := service.NewSecretStore(settingsRepo)
	registry := service.NewStrategyRegistry(
		service.NewOTPStrategy(totpService, encryptionService, secretStore, userRepo),
		service.NewBackupCodeStrategy(encryptionService, secretStore, cfg.MFA.BackupCodeCount),
		service.NewMagicLinkStrategy(challengeStore, mailer, userRepo, log,
			cfg.MFA.MagicLinkBaseURL, cfg.MFA.MagicLinkTokenTTL),
	)

	mfaService := service.NewMfaService(factorRepo, userRepo, registry, secretStore, events, log)
	sessionGate := service.NewSessionGate(sessionStore, log, cfg.MFA.SessionTrustTTL)

	// Seed the per-type encryption keys so factor creation never races
	// the first key generation.
	if _, err := mfaService.SyncSecrets(context.Background()); err != nil {
		log.Fatal("Failed to sync factor encryption keys", zap.Error(err))
	}

	handler := httpHandler.NewSecondFactorHandler(mfaService, sessionGate, log)
	router := httpHandler.NewRouter(handler, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited properly")
}
