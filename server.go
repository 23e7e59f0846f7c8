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

	"bitbucket.org/mmdatafocus/closings_backend/config"
	"bitbucket.org/mmdatafocus/closings_backend/email"
	"bitbucket.org/mmdatafocus/closings_backend/handlers"
	"bitbucket.org/mmdatafocus/closings_backend/middlewares"
	"bitbucket.org/mmdatafocus/closings_backend/store"
	"bitbucket.org/mmdatafocus/closings_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "config"}).Fatal(err.Error())
	}

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var stores store.Stores
	switch cfg.StoreBackend {
	case config.StoreBackendAirtable:
		stores = store.NewAirtable(cfg).Stores()
	case config.StoreBackendMySQL:
		config.ConnectDatabaseWithRetry(cfg)
		db := config.GetDB()
		if err := store.AutoMigrate(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
		stores = store.NewSQL(db).Stores()
	default:
		logger.WithFields(logrus.Fields{"field": "store"}).
			Warn("STORE_BACKEND=" + cfg.StoreBackend + "; using in-memory store, data will not survive restarts")
		stores = store.NewMemory().Stores()
	}

	// Redis lock is a best-effort optimization; in-process locks carry the
	// correctness load when Redis is absent.
	config.ConnectRedisWithRetry(cfg)
	locks := workflow.NewKeyedLocker(config.GetRedisLock(), logger)

	notifier := email.NewSendGridNotifier(cfg, logger)
	engine := workflow.NewEngine(cfg, logger, stores, notifier, locks)

	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "daily-sales-api"})
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	corsConfig := cors.DefaultConfig()
	// Production requires an explicit allowlist via CORS_ALLOWED_ORIGINS;
	// outside production, allow all for developer convenience.
	if cfg.IsProduction() {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PATCH", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware(cfg.JwtSecret))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	handlers.New(engine, &stores, cfg, logger).Register(r)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	logger.WithFields(logrus.Fields{
		"port":    cfg.Port,
		"backend": cfg.StoreBackend,
	}).Info("daily sales api listening")
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger logs only requests that recorded errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}
