package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/cliptake/api/internal/capture"
	"github.com/cliptake/api/internal/config"
	"github.com/cliptake/api/internal/export"
	"github.com/cliptake/api/internal/handler"
	"github.com/cliptake/api/internal/logging"
	"github.com/cliptake/api/internal/media"
	"github.com/cliptake/api/internal/middleware"
	"github.com/cliptake/api/internal/service"
	ws "github.com/cliptake/api/internal/websocket"
	"github.com/cliptake/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.Init(cfg.Server.Env, cfg.Server.Env == "development")

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// The inspector lets Cancel reach a task mid-encode
	asynqInspector := asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqInspector.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize capture backend and permission gate
	backend := capture.NewFFmpegBackend(
		cfg.FFmpeg.BinPath,
		cfg.FFmpeg.VideoFormat,
		cfg.FFmpeg.AudioFormat,
		devices(cfg.Capture.Cameras),
		devices(cfg.Capture.Microphones),
		logging.WithComponent("capture"),
	)
	gate := capture.NewPermissionGate(capture.AllowAll{})

	// Initialize media engine
	loader := media.NewFFProbeLoader(cfg.FFmpeg.ProbePath)
	builder := media.NewBuilder(logging.WithComponent("media"))
	encoder := export.NewFFmpegEncoder(cfg.FFmpeg.BinPath, logging.WithComponent("export"))

	// Initialize services
	captureService := service.NewCaptureService(backend, gate, hub, cfg.Capture, logging.WithComponent("capture"))
	mergeService := service.NewMergeService(redisClient, asynqClient, asynqInspector)
	playbackService := service.NewPlaybackService(loader, hub, cfg.Playback, logging.WithComponent("playback"))

	// Initialize handlers
	captureHandler := handler.NewCaptureHandler(captureService, validate)
	mergeHandler := handler.NewMergeHandler(mergeService, validate)
	playbackHandler := handler.NewPlaybackHandler(playbackService, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Capture routes
	capt := api.Group("/capture")
	capt.Post("/sessions", rateLimiter.SessionLimit(cfg.RateLimit.SessionsPerMin), captureHandler.CreateCameraSession)
	capt.Post("/voice-sessions", rateLimiter.SessionLimit(cfg.RateLimit.SessionsPerMin), captureHandler.CreateVoiceSession)
	capt.Get("/sessions/:sessionId", captureHandler.GetSession)
	capt.Post("/sessions/:sessionId/record/start", captureHandler.StartRecording)
	capt.Post("/sessions/:sessionId/record/stop", captureHandler.StopRecording)
	capt.Post("/sessions/:sessionId/switch", captureHandler.SwitchCamera)
	capt.Post("/sessions/:sessionId/torch", captureHandler.ToggleTorch)
	capt.Post("/voice-sessions/:sessionId/toggle", captureHandler.ToggleVoiceRecording)
	capt.Delete("/sessions/:sessionId", captureHandler.DeleteSession)

	// Merge routes
	merge := api.Group("/merge")
	merge.Post("/concat", rateLimiter.MergeLimit(cfg.RateLimit.MergesPerHour), mergeHandler.Concat)
	merge.Post("/voiceover", rateLimiter.MergeLimit(cfg.RateLimit.MergesPerHour), mergeHandler.VoiceOver)
	merge.Get("/status/:jobId", mergeHandler.Status)
	merge.Get("/result/:jobId", mergeHandler.Result)
	merge.Post("/cancel/:jobId", mergeHandler.Cancel)

	// Playback routes
	playback := api.Group("/playback")
	playback.Post("/sessions", playbackHandler.Create)
	playback.Get("/sessions/:sessionId", playbackHandler.Get)
	playback.Put("/sessions/:sessionId/bounds", playbackHandler.SetBounds)
	playback.Post("/sessions/:sessionId/play", playbackHandler.Play)
	playback.Post("/sessions/:sessionId/stop", playbackHandler.Stop)
	playback.Delete("/sessions/:sessionId", playbackHandler.Delete)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		// Note: In production, validate the token from query param
		// token := c.Query("token")
		hub.HandleConnection(c, jobID)
	}))

	app.Get("/ws/sessions/:sessionId", websocket.New(func(c *websocket.Conn) {
		sessionID := c.Params("sessionId")
		hub.HandleConnection(c, sessionID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, mergeService, hub, loader, builder, encoder)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, mergeService *service.MergeService, hub *ws.Hub, loader media.Loader, builder *media.Builder, encoder export.Encoder) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"export": 10,
			},
		},
	)

	// Create workers
	exportWorker := worker.NewExportWorker(mergeService, hub, loader, builder, encoder, cfg.Capture.TempDir, logging.WithComponent("worker"))

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeExport, exportWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func devices(cfgs []config.DeviceConfig) []capture.Device {
	out := make([]capture.Device, 0, len(cfgs))
	for _, d := range cfgs {
		out = append(out, capture.Device{
			ID:       d.ID,
			Name:     d.Name,
			Position: capture.CameraPosition(d.Position),
			HasTorch: d.Torch,
		})
	}
	return out
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
