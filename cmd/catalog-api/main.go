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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/curricle/catalog-api/api/swagger"
	"github.com/curricle/catalog-api/internal/handler"
	"github.com/curricle/catalog-api/internal/middleware"
	"github.com/curricle/catalog-api/internal/repository"
	"github.com/curricle/catalog-api/internal/search/index"
	"github.com/curricle/catalog-api/internal/service"
	"github.com/curricle/catalog-api/internal/session"
	"github.com/curricle/catalog-api/pkg/cache"
	"github.com/curricle/catalog-api/pkg/config"
	"github.com/curricle/catalog-api/pkg/database"
	"github.com/curricle/catalog-api/pkg/logger"
	corsmiddleware "github.com/curricle/catalog-api/pkg/middleware/cors"
	reqidmiddleware "github.com/curricle/catalog-api/pkg/middleware/requestid"
)

// @title Course Catalog API
// @version 1.0.0
// @description Faceted course catalog search with session-scoped search state
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	// Redis is optional: without it the query cache is off and sessions
	// live in memory only.
	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without cache and session persistence", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Search.CacheTTL, logr, cfg.Search.CacheEnabled && cacheRepo != nil)

	courseRepo := repository.NewCourseRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	annotationRepo := repository.NewAnnotationRepository(db)
	eventRepo := repository.NewSearchEventRepository(db)

	indexClient := index.NewHTTPClient(cfg.Search, logr)
	searchSvc := service.NewSearchService(indexClient, courseRepo, annotationRepo, cacheSvc, metricsSvc, nil, logr, cfg.Search.CacheTTL)
	catalogSvc := service.NewCatalogService(courseRepo, instructorRepo, cacheSvc, logr, cfg.Search.FacetCacheTTL)
	exportSvc := service.NewExportService(searchSvc)

	analyticsSvc := service.NewAnalyticsService(eventRepo, logr, cfg.Analytics.WorkerConcurrency, cfg.Analytics.WorkerRetries, cfg.Analytics.Enabled)
	analyticsSvc.Start(ctx)
	defer analyticsSvc.Stop()

	var persistence session.Persistence
	if cacheRepo != nil {
		persistence = cacheRepo
	}
	sessionManager := session.NewManager(session.ManagerConfig{
		Executor:    searchSvc,
		Recorder:    analyticsSvc,
		Stale:       metricsSvc,
		Persistence: persistence,
		TTL:         cfg.Sessions.TTL,
		PerPage:     cfg.Sessions.DefaultPerPage,
		Logger:      logr,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.Identity(cfg.Identity.Secret))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	searchHandler := handler.NewSearchHandler(searchSvc, exportSvc)
	courseHandler := handler.NewCourseHandler(searchSvc, catalogSvc)
	sessionHandler := handler.NewSessionHandler(sessionManager)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/search", searchHandler.Search)
		api.POST("/search/export", searchHandler.Export)

		api.GET("/courses", courseHandler.List)
		api.GET("/courses/facets", courseHandler.FacetValues)
		api.GET("/courses/counts-by-department", courseHandler.CountsByDepartment)
		api.GET("/courses/connected", courseHandler.ConnectedByInstructor)
		api.GET("/courses/:id", courseHandler.Get)

		api.POST("/sessions", sessionHandler.Create)
		api.GET("/sessions/:id", sessionHandler.Get)
		api.PATCH("/sessions/:id", sessionHandler.Update)
		api.POST("/sessions/:id/keywords", sessionHandler.AddKeyword)
		api.PATCH("/sessions/:id/keywords/:ident", sessionHandler.SetKeywordActive)
		api.DELETE("/sessions/:id/keywords/:ident", sessionHandler.RemoveKeyword)
		api.PUT("/sessions/:id/facets/:facet", sessionHandler.SetFacetSelection)
		api.DELETE("/sessions/:id/facets", sessionHandler.ResetFacets)
		api.POST("/sessions/:id/search", sessionHandler.Search)
		api.POST("/sessions/:id/more", sessionHandler.LoadMore)
		api.PUT("/sessions/:id/sort", sessionHandler.ChangeSort)
		api.GET("/sessions/:id/history", sessionHandler.History)
		api.POST("/sessions/:id/history/:index/restore", sessionHandler.Restore)
		api.POST("/sessions/:id/reset", sessionHandler.Reset)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("forced shutdown", zap.Error(err))
	}
}
