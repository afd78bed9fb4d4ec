package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyflow-backend/internal/calendar"
	"studyflow-backend/internal/config"
	"studyflow-backend/internal/database"
	"studyflow-backend/internal/handlers"
	"studyflow-backend/internal/middleware"
	"studyflow-backend/internal/planner"
	"studyflow-backend/internal/router"
	"studyflow-backend/internal/services"
	"studyflow-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting StudyFlow Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	loc := cfg.Location()
	log.Printf("✓ Environment variables loaded (planner timezone %s)", loc)

	// ──── Step 2: Optional Redis bus for live updates ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Println("✓ Redis connected (cross-instance updates enabled)")
	} else {
		log.Println("✓ Redis not configured, live updates stay in-process")
	}

	// ──── Step 3: Planner registry ────
	registry := planner.NewRegistry(cfg.PlannerIdleTTL)
	registry.Start()
	log.Printf("✓ Planner registry started (idle TTL %s)", cfg.PlannerIdleTTL)

	// ──── Step 4: Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.PlannerTokenTTL)
	wsHub := websocket.NewHub(redisClient, jwtAuth)
	exporter := calendar.NewExporter(cfg.CalendarProduct, cfg.CalendarDomain)
	plannerService := services.NewPlannerService(registry, exporter, wsHub, loc)

	// ──── Step 5: Handlers ────
	plannerHandler := handlers.NewPlannerHandler(plannerService, jwtAuth)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)

	// ──── Step 6: Start HTTP Server ────
	r := router.New(jwtAuth, plannerHandler, wsHub, rateLimiter, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		registry.Stop()
		rateLimiter.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ StudyFlow Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
