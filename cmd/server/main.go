package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizmaster-backend/internal/ai"
	"quizmaster-backend/internal/config"
	"quizmaster-backend/internal/database"
	"quizmaster-backend/internal/handlers"
	"quizmaster-backend/internal/middleware"
	"quizmaster-backend/internal/models"
	"quizmaster-backend/internal/quiz"
	"quizmaster-backend/internal/repository"
	"quizmaster-backend/internal/router"
	"quizmaster-backend/internal/services"
	"quizmaster-backend/internal/websocket"
	"quizmaster-backend/internal/worker"
	"quizmaster-backend/migrations"
)

func main() {
	log.Println("🚀 Starting Quizmaster Backend...")
	ctx := context.Background()

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	var migrationFS fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		migrationFS = os.DirFS(cfg.MigrationsDir)
	}
	if err := database.RunMigrations(ctx, pool, migrationFS); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	analyticsRepo := repository.NewAnalyticsRepo(pool)
	questionRepo := repository.NewQuestionRepo(pool, analyticsRepo)
	categoryRepo := repository.NewCategoryRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool)
	achievementRepo := repository.NewAchievementRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize AI Question Provider ────
	generator, closer, err := ai.New(ctx, ai.Config{
		Provider:       cfg.AIProvider,
		Endpoint:       cfg.AIEndpoint,
		APIKey:         cfg.AIAPIKey,
		Model:          cfg.AIModel,
		Timeout:        cfg.AITimeout,
		ConcurrentReqs: cfg.AIConcurrentRequests,
	})
	if err != nil {
		log.Fatalf("✗ AI provider initialization failed: %v", err)
	}
	defer closer.Close()
	var aiProvider quiz.AIQuestionProvider
	if generator != nil {
		aiProvider = generator
		log.Printf("✓ AI provider %q initialized", cfg.AIProvider)
	} else {
		log.Println("✓ AI provider disabled (bank-only strategies)")
	}

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth)
	events := services.NewEventPublisher(redisClients.PubSub)
	achievementService := services.NewAchievementService(sessionRepo, achievementRepo, events)

	// ──── Step 6: Initialize Quiz Engine ────
	source := quiz.NewSource(questionRepo, aiProvider, cfg.AITimeout)
	engine := quiz.NewEngine(source, sessionRepo, achievementService, quiz.EngineConfig{
		DefaultQuestionCount: cfg.DefaultQuestionCount,
	})
	sweeper := services.NewSessionSweeper(engine, cfg.SessionIdleTimeout)
	sweeper.Start()
	log.Printf("✓ Quiz engine ready (idle sessions evicted after %s)", cfg.SessionIdleTimeout)

	// ──── Step 7: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, aiProvider, questionRepo, jobRepo, events, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 8: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, services.UserChannel, cfg.FrontendURL)
	log.Println("✓ WebSocket hub started")

	// ──── Step 9: Start HTTP Server ────
	enqueue := func(ctx context.Context, job *models.Job) error {
		return worker.Enqueue(ctx, redisClients.Queue, job)
	}
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer authLimiter.Stop()
	quizLimiter := middleware.NewRedisRateLimiter("quiz-start", 30, time.Minute, redisClients.Queue)
	defer quizLimiter.Stop()

	r := router.New(jwtAuth, router.Handlers{
		Auth:      handlers.NewAuthHandler(authService),
		Quiz:      handlers.NewQuizHandler(engine, events),
		Dashboard: handlers.NewDashboardHandler(engine, analyticsRepo, achievementRepo),
		Questions: handlers.NewQuestionHandler(questionRepo, categoryRepo, jobRepo, enqueue),
		WS:        wsHub,
	}, router.Limiters{
		Auth:      authLimiter,
		QuizStart: quizLimiter,
	}, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)

		workerPool.Stop()
		sweeper.Stop()
		engine.Wait()
	}()

	log.Printf("✓ Quizmaster Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-done
	log.Println("✓ Shutdown complete")
}
