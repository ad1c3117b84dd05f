package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/activity"
	"attendtrack/internal/attendance"
	"attendtrack/internal/auth"
	"attendtrack/internal/config"
	"attendtrack/internal/courses"
	"attendtrack/internal/faq"
	"attendtrack/internal/httpapi"
	"attendtrack/internal/httpmiddleware"
	"attendtrack/internal/messaging"
	"attendtrack/internal/notify"
	"attendtrack/internal/queue"
	"attendtrack/internal/report"
	"attendtrack/internal/schedule"
	"attendtrack/internal/store"
	"attendtrack/internal/support"
	"attendtrack/internal/users"
)

const notificationQueue = "attendtrack:notifications"

func main() {
	cfg := config.Load()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	redisClient, err := store.NewRedis(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	health := map[string]httpapi.HealthChecker{"db": db}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(256)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, notificationQueue)
		health["redis"] = redisClient
	}

	var limiter httpmiddleware.Limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
		health["redis"] = redisClient
	}

	tokens := auth.Issuer{
		Name:       cfg.JWTIssuer,
		Key:        cfg.JWTSigningKey,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}

	userRepo := users.NewRepository(db.Client)
	courseRepo := courses.NewRepository(db.Client)
	slotRepo := schedule.NewRepository(db.Client)
	sink := notify.NewQueueSink(q)
	notifications := notify.NewService(notify.NewRepository(db.Client), userRepo, cfg.Absence)
	audit := activity.NewService(activity.NewRepository(db.Client))

	svc := httpapi.Services{
		Users:         users.NewService(userRepo, tokens, audit),
		Courses:       courses.NewService(courseRepo, userRepo),
		Schedule:      schedule.NewService(slotRepo, userRepo, courseRepo, audit),
		Attendance:    attendance.NewService(attendance.NewRepository(db.Client), slotRepo, userRepo, sink, audit),
		Reports:       report.NewService(report.NewRepository(db.Client), userRepo),
		Notifications: notifications,
		Messages:      messaging.NewService(messaging.NewRepository(db.Client), userRepo, sink),
		FAQs:          faq.NewService(faq.NewRepository(db.Client)),
		Support:       support.NewService(support.NewRepository(db.Client), userRepo, sink, audit),
		Activity:      audit,
	}

	if cfg.AdminEmail != "" {
		created, err := svc.Users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			log.Printf("bootstrap admin %s created", cfg.AdminEmail)
		}
	}

	// Without redis there is no separate worker process to drain the queue.
	workerDone := make(chan struct{})
	if cfg.QueueBackend == "memory" {
		go func() {
			defer close(workerDone)
			if err := notify.NewWorker(notifications).Run(ctx, q); err != nil {
				log.Printf("notification worker: %v", err)
			}
		}()
	} else {
		close(workerDone)
	}

	r := httpapi.NewRouter(svc, httpapi.Options{
		Tokens:      tokens,
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     limiter,
		Health:      health,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}
	<-workerDone

	log.Println("Server exited")
	return nil
}
