package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/preparatorio-aauma-api/api/swagger"
	"github.com/noah-isme/preparatorio-aauma-api/internal/handler"
	internalmiddleware "github.com/noah-isme/preparatorio-aauma-api/internal/middleware"
	"github.com/noah-isme/preparatorio-aauma-api/internal/repository"
	"github.com/noah-isme/preparatorio-aauma-api/internal/router"
	"github.com/noah-isme/preparatorio-aauma-api/internal/service"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/cache"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/config"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/database"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/export"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/jobs"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/preparatorio-aauma-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/preparatorio-aauma-api/pkg/middleware/requestid"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/storage"
)

// @title Preparatório AAUMA API
// @version 1.0.0
// @description Enrollment, course pair and finance administration for the AAUMA preparatory program
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const organisation = "Preparatório AAUMA"

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	var (
		cacheRepo    *repository.CacheRepository
		cacheBackend service.CacheRepository
	)
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		cacheBackend = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheBackend, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	pairRepo := repository.NewCoursePairRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)

	auditSvc := service.NewAuditService(auditRepo, logr)
	authSvc := service.NewAuthService(userRepo, logr, service.AuthConfig{
		JWTSecret: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
	})
	roomSvc := service.NewRoomService(roomRepo, auditSvc, logr)
	pairSvc := service.NewPairService(pairRepo, classRepo, studentRepo, roomSvc, auditSvc, cacheSvc, metrics, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(pairSvc, enrollmentRepo, studentRepo, auditSvc, cacheSvc, metrics, service.EnrollmentServiceConfig{
		Fee:           cfg.Enrollment.Fee,
		DurationLabel: cfg.Enrollment.DurationLabel,
		StartDate:     cfg.Enrollment.StartDate,
	}, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, pairRepo, auditSvc, cacheSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, cfg.Cache.TTL, logr)
	dashboardSvc := service.NewDashboardService(pairSvc, cacheSvc, service.DashboardServiceConfig{
		CacheTTL: cfg.Cache.TTL,
		Fee:      cfg.Enrollment.Fee,
	}, logr)
	userSvc := service.NewUserService(userRepo, auditSvc, logr)
	searchSvc := service.NewSearchService(studentRepo, pairRepo)

	documentStore, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare document storage", zap.Error(err))
	}
	documentSvc := service.NewDocumentService(studentRepo, documentStore,
		storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL),
		auditSvc, service.DocumentServiceConfig{
			MaxFileSizeBytes: cfg.Documents.MaxFileSizeBytes,
			AllowedMIMEs:     cfg.Documents.AllowedMIMEs,
		}, logr)

	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare report storage", zap.Error(err))
	}
	exportSvc := service.NewExportService(pairSvc, studentRepo, auditSvc, reportStore,
		storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL, Fee: cfg.Enrollment.Fee},
		logr, export.NewCSVExporter(), export.NewPDFExporter(organisation))

	worker := service.NewReportWorker(reportRepo, exportSvc, metrics, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
		OnFailure: func(job jobs.Job, err error) {
			logr.Error("report job abandoned", zap.String("job_id", job.ID), zap.Error(err))
		},
	})
	reportSvc := service.NewReportService(reportRepo, queue, exportSvc, metrics, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	if cfg.Reports.Enabled {
		queue.Start(ctx)
		defer queue.Stop()
		if n := reportSvc.RecoverPendingJobs(ctx); n > 0 {
			logr.Info("requeued pending report jobs", zap.Int("count", n))
		}
		reportSvc.StartCleanup(ctx)
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Documents.MaxFileSizeBytes + 1<<20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	router.Register(r, cfg.APIPrefix, router.Dependencies{
		Auth:       internalmiddleware.Auth(authSvc),
		Optional:   internalmiddleware.OptionalAuth(authSvc),
		Views:      auditSvc,
		Pairs:      handler.NewPairHandler(pairSvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Students:   handler.NewStudentHandler(studentSvc, documentSvc, exportSvc),
		Catalog:    handler.NewCatalogHandler(courseSvc, roomSvc),
		Dashboard:  handler.NewDashboardHandler(dashboardSvc),
		Audit:      handler.NewAuditHandler(auditSvc),
		Users:      handler.NewUserHandler(userSvc),
		Search:     handler.NewSearchHandler(searchSvc),
		Reports:    handler.NewReportHandler(reportSvc, exportSvc),
		Metrics:    handler.NewMetricsHandler(metrics, readinessChecks(db, cacheRepo)),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func readinessChecks(db *sqlx.DB, cacheRepo *repository.CacheRepository) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if cacheRepo != nil {
		checks["redis"] = cacheRepo.Ping
	}
	return checks
}
