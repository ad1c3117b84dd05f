package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"attendtrack/internal/config"
	"attendtrack/internal/notify"
	"attendtrack/internal/queue"
	"attendtrack/internal/store"
	"attendtrack/internal/users"
)

// Worker drains the redis notification queue: it stores notices and runs absence checks.
func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory: notifications are processed inside the api process")
	}

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient, err := store.NewRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("redis config invalid: %v", err)
	}
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis not reachable at %s, will keep retrying", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, "attendtrack:notifications")
	svc := notify.NewService(notify.NewRepository(db.Client), users.NewRepository(db.Client), cfg.Absence)

	if err := notify.NewWorker(svc).Run(ctx, q); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
}
