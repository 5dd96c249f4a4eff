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

	"github.com/fortuna/huddle/internal/api/rest"
	"github.com/fortuna/huddle/internal/api/websocket"
	"github.com/fortuna/huddle/internal/cache"
	"github.com/fortuna/huddle/internal/config"
	"github.com/fortuna/huddle/internal/ingest"
	"github.com/fortuna/huddle/internal/ingest/sportsdb"
	"github.com/fortuna/huddle/internal/metrics"
	"github.com/fortuna/huddle/internal/publisher"
	"github.com/fortuna/huddle/internal/runs"
	"github.com/fortuna/huddle/internal/scheduler"
	"github.com/fortuna/huddle/internal/service"
	"github.com/fortuna/huddle/internal/store"
	"github.com/fortuna/huddle/internal/store/repository"
)

const (
	serviceName    = "huddle"
	serviceVersion = "1.0.0"
)

func main() {
	log.Printf("Starting %s v%s - Sports Schedule Ingestion Service", serviceName, serviceVersion)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database connection
	db, err := store.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("✓ Connected to database")

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// Seed data is idempotent; failures are not fatal
	if err := db.SeedData(); err != nil {
		log.Printf("⚠️  Seed data warning: %v (continuing anyway)", err)
	} else {
		log.Println("✓ Seed data applied")
	}

	// Initialize Redis client with retry logic
	var redisCache *cache.RedisCache
	maxRetries := 30
	retryDelay := 2 * time.Second

	log.Println("Connecting to Redis...")
	for i := 0; i < maxRetries; i++ {
		redisCache, err = cache.NewRedisCache(cfg.RedisURL)
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			log.Printf("Redis connection attempt %d/%d failed: %v (retrying in %v)", i+1, maxRetries, err, retryDelay)
			time.Sleep(retryDelay)
		} else {
			log.Fatalf("Failed to connect to Redis after %d attempts: %v", maxRetries, err)
		}
	}
	defer redisCache.Close()

	log.Println("✓ Connected to Redis")

	m := metrics.New()
	hub := websocket.NewHub(nil)
	streamPublisher := publisher.NewRedisStreamPublisher(redisCache.Client(), nil)

	clientCfg := cfg.Client()
	clientCfg.Observer = m
	client := sportsdb.NewClient(clientCfg)

	pipeline := ingest.NewPipeline(
		client,
		repository.NewSportRepository(db),
		repository.NewGameRepository(db),
		redisCache,
		ingest.Reporters{m, streamPublisher, hub},
		cfg.Pipeline(),
		log.New(log.Writer(), "[ingest] ", log.LstdFlags),
	)

	runService := runs.NewService(runs.NewRepository(db), pipeline, redisCache, nil)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := runService.ResetStuck(startupCtx); err != nil {
		log.Printf("⚠️  Failed to reset interrupted runs: %v", err)
	}
	startupCancel()

	schedulerConfig, err := cfg.Schedules()
	if err != nil {
		log.Fatalf("Invalid scheduler configuration: %v", err)
	}

	sched, err := scheduler.NewOrchestrator(runService, schedulerConfig, nil)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Start(ctx)
	}()

	log.Println("✓ Scheduler started")

	restServer := rest.NewServer(cfg.RESTPort, rest.Deps{
		Database:    db,
		Redis:       redisCache,
		Games:       service.NewGameService(db),
		Runs:        runService,
		Summaries:   redisCache,
		Scheduler:   sched,
		Metrics:     m.Handler(),
		CORSOrigins: cfg.CORSOrigins,
	})
	go func() {
		log.Printf("Starting REST API server on port %s", cfg.RESTPort)
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("REST server error: %v", err)
		}
	}()

	wsServer := websocket.NewServer(hub, nil)
	go func() {
		log.Printf("Starting WebSocket server on port %s", cfg.WSPort)
		if err := wsServer.Start(ctx, cfg.WSPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("WebSocket server error: %v", err)
		}
	}()

	log.Printf("✓ Huddle v%s started successfully", serviceVersion)
	log.Printf("  REST API: http://0.0.0.0:%s", cfg.RESTPort)
	log.Printf("  WebSocket: ws://0.0.0.0:%s/ws/ingest", cfg.WSPort)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down Huddle gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("REST API server shutdown error: %v", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("WebSocket server shutdown error: %v", err)
	}

	// Stops the hub and lets the scheduler finish an in-flight run
	cancel()
	<-schedDone

	log.Println("Huddle stopped")
}
