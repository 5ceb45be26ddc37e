package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/barangay-api/internal/repository"
	"github.com/noah-isme/barangay-api/internal/service"
	"github.com/noah-isme/barangay-api/pkg/cache"
	"github.com/noah-isme/barangay-api/pkg/config"
	"github.com/noah-isme/barangay-api/pkg/database"
	"github.com/noah-isme/barangay-api/pkg/export"
	"github.com/noah-isme/barangay-api/pkg/logger"
	"github.com/noah-isme/barangay-api/pkg/qrcode"
	"github.com/noah-isme/barangay-api/pkg/storage"
)

// @title Barangay Records API
// @version 1.0.0
// @description Approval queue, certificate issuance and case tracking for barangay offices
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	var (
		redisClient *redis.Client
		locker      cache.Locker = cache.NewLocalLocker()
		publisher   service.EventPublisher
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, using in-process locks and no event fan-out", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			locker = cache.NewRedisLocker(redisClient, cache.LockOptions{
				TTL:     cfg.Certificates.LockTTL,
				Retries: cfg.Certificates.LockRetries,
				Backoff: cfg.Certificates.LockBackoff,
			})
			publisher = service.NewRedisPublisher(redisClient, cfg.Notifications.Channel)
		}
	}

	documents, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		return fmt.Errorf("prepare certificate storage: %w", err)
	}

	transactor := database.NewTransactor(db)
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	officialRepo := repository.NewOfficialRepository(db)
	signerRepo := repository.NewSignerRepository(db, officialRepo)
	certRepo := repository.NewCertificateRequestRepository(db)
	issuedRepo := repository.NewIssuedCertificateRepository(db)
	blotterRepo := repository.NewBlotterRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	sequences := repository.NewSequenceRepository()

	notifications := service.NewNotificationService(notificationRepo, publisher, cfg.Notifications, metrics, logr)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifications.Start(ctx)
	defer notifications.Stop()

	gate := service.NewAuthorityGate(signerRepo, logr)
	runner := service.NewTransitionRunner(gate, transactor, locker, notifications, metrics, logr)
	codec := qrcode.NewSigner(cfg.Certificates.QRSecret)
	renderer := service.NewPDFCertificateRenderer(export.NewCertificatePDF(), documents, signerRepo, cfg.Certificates.VerifyBaseURL)

	issuance := service.NewIssuanceService(service.IssuanceDeps{
		Requests:  certRepo,
		Issued:    issuedRepo,
		Sequences: sequences,
		Signers:   gate,
		Gate:      gate,
		Codec:     codec,
		Renderer:  renderer,
		Documents: documents,
		Runner:    runner,
		Metrics:   metrics,
	}, cfg.Certificates, logr)

	authSvc := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	svcs := services{
		auth:         authSvc,
		approvals:    service.NewApprovalService(gate, certRepo, blotterRepo, incidentRepo, export.NewCSVExporter(), metrics, logr),
		certificates: service.NewCertificateService(certRepo, issuance, runner, logr),
		issuance:     issuance,
		verification: service.NewVerificationService(issuedRepo, codec, logr),
		blotters:     service.NewBlotterService(blotterRepo, sequences, officialRepo, gate, runner, cfg.Approvals, logr),
		incidents:    service.NewIncidentService(incidentRepo, officialRepo, runner, logr),
		officials:    service.NewOfficialService(officialRepo, service.NewUniquenessGuard(officialRepo, cfg.Approvals.SingletonRoles), transactor, logr),
		metrics:      metrics,
		audit:        userRepo,
		signatures:   documents,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, svcs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logr.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
