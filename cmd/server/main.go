package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"instructorcopilot/internal/artifacts"
	"instructorcopilot/internal/clients/gemini"
	redisclient "instructorcopilot/internal/clients/redis"
	"instructorcopilot/internal/db"
	"instructorcopilot/internal/handlers"
	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/render"
	"instructorcopilot/internal/repos"
	"instructorcopilot/internal/server"
	"instructorcopilot/internal/services"
	"instructorcopilot/internal/sse"
	"instructorcopilot/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Database
	dbService, err := db.NewDatabaseService(log)
	if err != nil {
		log.Fatal("Database init failed", "error", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Fatal("Auto migration failed", "error", err)
	}
	gdb := dbService.DB()

	// Repos
	log.Info("Setting up repos...")
	runRepo := repos.NewGenerationRunRepo(gdb, log)
	sessionRepo := repos.NewSessionRepo(gdb, log)
	eventRepo := repos.NewSessionEventRepo(gdb, log)
	configRepo := repos.NewCourseConfigRepo(gdb, log)

	// Artifact store
	store, err := artifacts.NewStore(log)
	if err != nil {
		log.Fatal("Artifact store init failed", "error", err)
	}

	// Model client. Without an API key the pipeline cannot run, but the
	// file-serving endpoints still work, so only warn.
	var client gemini.Client
	if c, err := gemini.NewClient(log); err != nil {
		log.Warn("Gemini client unavailable, generation disabled", "error", err)
	} else {
		client = c
	}

	// SSE hub, with optional Redis fan-out across instances.
	hub := sse.NewHub(log)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if bus, err := redisclient.NewSSEBus(log); err == nil {
		if err := bus.StartForwarder(ctx, hub.Broadcast); err != nil {
			log.Warn("Redis SSE forwarder failed to start", "error", err)
		} else {
			defer bus.Close()
		}
	} else {
		log.Debug("Redis SSE bus disabled", "reason", err)
	}

	// Services
	log.Info("Setting up services...")
	configService := services.NewConfigService(configRepo, log)
	builder := services.NewStructuredBuilder(client, log)
	renderers := []render.Renderer{
		render.NewCourseMaterialRenderer(log),
		render.NewQuizzesRenderer(client, log),
		render.NewPPTRenderer(log),
		render.NewFlashcardsRenderer(client, log),
	}
	courseGenService := services.NewCourseGenerationService(
		gdb, log, runRepo, sessionRepo, eventRepo, configRepo,
		client, builder, store, hub, renderers,
	)
	statusService := services.NewStatusService(runRepo, configRepo, store, log)

	courseGenService.StartWorker(ctx)

	// Handlers + router
	uploadHandler := handlers.NewUploadHandler(configService, store, log)
	generationHandler := handlers.NewGenerationHandler(courseGenService, statusService, log)
	filesHandler := handlers.NewFilesHandler(store, log)
	sseHandler := handlers.NewSSEHandler(hub, log)

	router := server.NewRouter(server.RouterConfig{
		UploadHandler:     uploadHandler,
		GenerationHandler: generationHandler,
		FilesHandler:      filesHandler,
		SSEHandler:        sseHandler,
	})

	port := utils.GetEnv("PORT", "8000", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
