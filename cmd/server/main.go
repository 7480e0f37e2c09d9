package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"
	config "github.com/socialdeck/socialdeck/configs"
	"github.com/socialdeck/socialdeck/internal/api/handlers"
	"github.com/socialdeck/socialdeck/internal/api/middleware"
	job "github.com/socialdeck/socialdeck/internal/jobs"
	"github.com/socialdeck/socialdeck/internal/platforms"
	"github.com/socialdeck/socialdeck/internal/queue"
	"github.com/socialdeck/socialdeck/internal/repository"
	"github.com/socialdeck/socialdeck/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	postRepo := repository.NewPostRepository(db)
	postTargetRepo := repository.NewPostTargetRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	postingRecordRepo := repository.NewPostingRecordRepository(db)

	r2Service := service.NewR2Service(cfg)

	registry := platforms.NewRegistry(
		platforms.NewTwitterAdapter(cfg),
		platforms.NewLinkedInAdapter(cfg),
		platforms.NewFacebookAdapter(cfg),
		platforms.NewInstagramAdapter(cfg, r2Service),
		platforms.NewTiktokAdapter(cfg),
		platforms.NewYouTubeAdapter(cfg),
	)

	authService := service.NewAuthService(cfg, userRepo)
	credentialService := service.NewCredentialService(cfg, registry, userRepo, credentialRepo)
	postService := service.NewPostService(db, postRepo, postTargetRepo, credentialRepo, mediaAssetRepo, postMediaRepo, r2Service)
	publisherService := service.NewPublisherService(registry, credentialService, postRepo, postTargetRepo, postMediaRepo, mediaAssetRepo, postingRecordRepo)

	authMiddleware := middleware.NewAuthMiddleware(cfg)

	auth := handlers.NewAuthHandler(cfg, authService, client)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	credential := handlers.NewCredentialHandler(cfg, credentialService)
	app.Get("/auth/:platform/callback", authMiddleware.OptionalAuth(), credential.Callback)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Post("/twitter/auth", credential.ConnectTwitter)
	api.Post("/auth/oauth/:platform", credential.Connect)
	api.Get("/credentials/status", credential.Status)
	api.Delete("/credentials/:platform/disconnect", credential.Disconnect)

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(credentialRepo, credentialService)

	//queue
	queueW := queue.NewQueue(publisherService, userRepo)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeSchedulePost, queueW.HandleSchedulePostTask)
		mux.HandleFunc(queue.TaskTypeProvisionWorkspace, queueW.HandleProvisionWorkspaceTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
