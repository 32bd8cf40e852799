package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blogsphere/backend/internal/config"
	"github.com/blogsphere/backend/internal/database"
	"github.com/blogsphere/backend/internal/handlers"
	"github.com/blogsphere/backend/internal/jobs"
	"github.com/blogsphere/backend/internal/media"
	"github.com/blogsphere/backend/internal/ratelimit"
	"github.com/blogsphere/backend/internal/realtime"
	"github.com/blogsphere/backend/internal/repository"
	"github.com/blogsphere/backend/internal/scheduler"
	"github.com/blogsphere/backend/internal/services"
	"github.com/blogsphere/backend/internal/session"
	"github.com/blogsphere/backend/pkg/email"
	"github.com/blogsphere/backend/pkg/logger"
	"github.com/blogsphere/backend/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	logger.Log.Info("Logger initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}
	defer database.Disconnect(db)

	// --- Redis (optional): cross-instance fan-out, login rate limit, token revocation ---
	var (
		bus          realtime.Bus
		loginLimiter ratelimit.Limiter
		revoker      session.Revoker = session.NewMemoryRevoker()
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis connection error: %v", err)
		}
		bus = realtime.NewRedisBus(rdb, cfg.RedisChannel)
		revoker = session.NewRedisRevoker(rdb)
		limiter, err := ratelimit.NewFixedWindowLimiter(rdb, "blogsphere:login", cfg.LoginRateLimit, cfg.LoginRateWindow)
		if err != nil {
			log.Fatalf("Rate limiter error: %v", err)
		}
		loginLimiter = limiter
		logger.Log.WithField("addr", cfg.RedisAddr).Info("Redis enabled")
	}

	// --- Media ---
	var (
		images    services.ImageStore
		uploadDir string
	)
	if cfg.MinioEnabled() {
		store, err := media.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, cfg.MediaPublicURL)
		if err != nil {
			log.Fatalf("Object storage error: %v", err)
		}
		images = store
	} else {
		store, err := media.NewDiskStore(cfg.UploadDir, strings.TrimRight(cfg.MediaPublicURL, "/")+"/uploads")
		if err != nil {
			log.Fatalf("Upload directory error: %v", err)
		}
		images, uploadDir = store, cfg.UploadDir
	}

	var mailer services.Mailer
	if sender := email.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPSender, cfg.SMTPPassword); sender != nil {
		mailer = sender
	}

	// --- Realtime ---
	hub := realtime.NewHub(bus)
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.WithError(err).Error("Realtime hub stopped")
		}
	}()

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	blogRepo := repository.NewBlogRepository(db)
	likeRepo := repository.NewLikeRepository(db, cfg.UseTransactions)
	notificationRepo := repository.NewNotificationRepository(db)

	// --- Services ---
	userService := services.NewUserService(userRepo, images, mailer, revoker, cfg.JWTSecret, cfg.TokenExpiry)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, hub)
	blogService := services.NewBlogService(blogRepo, likeRepo, userRepo, images, notificationService, hub)

	// --- Handlers ---
	auth := middleware.NewAuthenticator(cfg.JWTSecret, userRepo, revoker)
	trustedProxies, err := middleware.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}
	router := handlers.NewRouter(handlers.Routes{
		Users:          handlers.NewUserHandler(userService, blogService, cfg),
		Blogs:          handlers.NewBlogHandler(blogService),
		Notifications:  handlers.NewNotificationHandler(notificationService),
		WS:             handlers.NewWSHandler(hub, auth, cfg.AllowedOrigins),
		Auth:           auth,
		LoginLimiter:   loginLimiter,
		TrustedProxies: trustedProxies,
		UploadDir:      uploadDir,
	})

	// --- Jobs ---
	cronRunner, err := scheduler.Start(cfg.ReconcileSchedule, jobs.NewLikeReconciler(blogRepo))
	if err != nil {
		log.Fatalf("Scheduler error: %v", err)
	}
	defer cronRunner.Stop()

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Graceful shutdown failed")
	}
}
