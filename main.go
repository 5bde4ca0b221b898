package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/clinware/backend/cache"
	"github.com/clinware/backend/config"
	"github.com/clinware/backend/handlers"
	"github.com/clinware/backend/middleware"
	"github.com/clinware/backend/scheduling"
	"github.com/clinware/backend/store"
	"github.com/clinware/backend/utils"
)

type App struct {
	Fiber       *fiber.App
	Postgres    *pgxpool.Pool
	Redis       *redis.Client
	Mongo       *mongo.Client
	MinioClient *minio.Client
	Store       *store.Mongo
	Ctx         context.Context
	Config      *config.Config
	Logger      *zap.Logger
}

func NewApp() (*App, error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	AuthkitInit(cfg)

	ctx := context.Background()

	// Initialize logger
	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %v", err)
	}

	// Setup PostgreSQL connection with retry logic
	var pgPool *pgxpool.Pool
	maxRetries := 5

	poolConfig, err := pgxpool.ParseConfig(cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pool config: %v", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	for i := 0; i < maxRetries; i++ {
		pgPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			// Test the connection
			if err = pgPool.Ping(ctx); err == nil {
				break
			}
			pgPool.Close()
		}
		logger.Warn("failed to connect to postgres, retrying...",
			zap.Error(err),
			zap.Int("attempt", i+1))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		return nil, fmt.Errorf("postgres connection failed after %d attempts: %v", maxRetries, err)
	}

	// Setup Redis connection with retry logic
	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis URL parsing failed: %v", err)
	}

	redisClient := redis.NewClient(redisOpt)
	maxRedisRetries := 5
	for i := 0; i < maxRedisRetries; i++ {
		_, err = redisClient.Ping(ctx).Result()
		if err == nil {
			break
		}
		logger.Warn("failed to connect to redis, retrying...",
			zap.Error(err),
			zap.Int("attempt", i+1))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		return nil, fmt.Errorf("redis connection failed after %d attempts: %v", maxRedisRetries, err)
	}

	// Setup MongoDB connection with retry logic
	var mongoClient *mongo.Client
	maxMongoRetries := 5
	for i := 0; i < maxMongoRetries; i++ {
		mongoClient, err = mongo.Connect(options.Client().ApplyURI(cfg.MongoDBURL))
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = mongoClient.Ping(pingCtx, nil)
			cancel()
			if err == nil {
				break
			}
			mongoClient.Disconnect(ctx)
		}
		logger.Warn("failed to connect to mongodb, retrying...",
			zap.Error(err),
			zap.Int("attempt", i+1))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb connection failed after %d attempts: %v", maxMongoRetries, err)
	}

	mongoStore := store.NewMongo(mongoClient, cfg.MongoDBName, logger)
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure mongodb indexes: %v", err)
	}

	// Setup MinIO connection with retry logic
	var minioClient *minio.Client
	maxMinioRetries := 5
	for i := 0; i < maxMinioRetries; i++ {
		minioClient, err = minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
			Secure: true,
			Region: cfg.MinioRegion,
		})
		if err != nil {
			logger.Warn("failed to create minio client, retrying...",
				zap.Error(err),
				zap.Int("attempt", i+1))
			time.Sleep(time.Second * time.Duration(i+1))
			continue
		}
		break
	}
	if err != nil {
		return nil, fmt.Errorf("minio connection failed after %d attempts: %v", maxMinioRetries, err)
	}

	// Create required buckets
	requiredBuckets := []string{handlers.DoctorPicsBucket, handlers.NewsPicsBucket}
	for _, bucket := range requiredBuckets {
		exists, err := minioClient.BucketExists(ctx, bucket)
		if err != nil {
			logger.Error("failed to check bucket existence",
				zap.String("bucket", bucket),
				zap.Error(err))
			continue
		}

		if exists {
			logger.Info("bucket verified",
				zap.String("bucket", bucket))
			continue
		}

		err = minioClient.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: cfg.MinioRegion})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			logger.Error("failed to create bucket",
				zap.String("bucket", bucket),
				zap.Error(err))
		} else {
			logger.Info("bucket created",
				zap.String("bucket", bucket))
		}
	}

	// Fiber setup with improved error handling
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			logger.Error("request error",
				zap.Error(err),
				zap.String("path", c.Path()),
				zap.Int("status", code))
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
	})

	fiberApp.Use(middleware.RecoveryMiddleware(logger))

	// CORS configuration
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		ExposeHeaders:    "Set-Cookie",
		MaxAge:           300,
	}))

	fiberApp.Use(middleware.RequestLogger(logger))

	return &App{
		Fiber:       fiberApp,
		Postgres:    pgPool,
		Redis:       redisClient,
		Mongo:       mongoClient,
		MinioClient: minioClient,
		Store:       mongoStore,
		Ctx:         ctx,
		Config:      cfg,
		Logger:      logger,
	}, nil
}

func (a *App) setupRoutes() error {
	authMiddleware, err := middleware.NewAuthMiddleware(a.Logger, a.Redis, a.Config, handlers.SessionCookieName)
	if err != nil {
		return fmt.Errorf("failed to initialize auth middleware: %v", err)
	}

	scheduler := scheduling.NewService(a.Store, a.Logger)
	availCache := cache.NewCache(a.Redis, "avail:")
	idGen := utils.NewIDGenerator()

	authHandler := handlers.NewAuthHandler(a.Config, a.Redis, a.Postgres, a.Logger)
	userHandler := handlers.NewUserHandler(a.Config, a.Postgres, a.Logger)
	doctorHandler := handlers.NewDoctorHandler(a.Store, availCache, a.MinioClient, a.Config, a.Logger)
	patientHandler := handlers.NewPatientHandler(a.Store, idGen, a.Logger)
	appointmentHandler := handlers.NewAppointmentHandler(a.Store, scheduler, availCache, a.Config, a.Logger)
	waitingListHandler := handlers.NewWaitingListHandler(a.Store, scheduler, availCache, a.Logger)
	newsHandler := handlers.NewNewsHandler(a.Store, a.MinioClient, a.Config, a.Logger)
	mediaHandler := handlers.NewMediaHandler(a.MinioClient, a.Logger)

	a.Fiber.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Served without auth so image URLs work in plain <img> tags
	a.Fiber.Get("/api/media/:bucket/:filename", mediaHandler.GetMedia)

	// Login endpoints stay outside the auth middleware
	auth := a.Fiber.Group("/auth")
	auth.Get("/login", authHandler.Login)
	auth.Get("/callback", authHandler.Callback)
	auth.Post("/callback", authHandler.Callback)
	auth.Post("/logout", authHandler.Logout)

	api := a.Fiber.Group("/api", authMiddleware.Handler())

	api.Get("/auth/me", authHandler.Me)

	users := api.Group("/users")
	users.Get("/me", userHandler.GetProfile)
	users.Put("/me", userHandler.UpdateProfile)
	users.Get("/", userHandler.ListUsers)
	users.Put("/:authID/role", userHandler.SetRole)

	api.Get("/schedule-templates", doctorHandler.ListScheduleTemplates)

	doctors := api.Group("/doctors")
	doctors.Post("/", doctorHandler.CreateDoctor)
	doctors.Get("/", doctorHandler.ListDoctors)
	doctors.Get("/:id", doctorHandler.GetDoctor)
	doctors.Put("/:id", doctorHandler.UpdateDoctor)
	doctors.Delete("/:id", doctorHandler.DeleteDoctor)
	doctors.Put("/:id/schedule", doctorHandler.SetSchedule)
	doctors.Post("/:id/schedule/template", doctorHandler.ApplyScheduleTemplate)
	doctors.Post("/:id/photo", doctorHandler.UploadPhoto)
	doctors.Get("/:id/available-slots", appointmentHandler.GetAvailableSlots)
	doctors.Get("/:id/appointments", appointmentHandler.ListDoctorAppointments)
	doctors.Post("/:id/locked-slots", appointmentHandler.LockSlot)
	doctors.Get("/:id/locked-slots", appointmentHandler.ListLockedSlots)
	doctors.Delete("/:id/locked-slots/:lockID", appointmentHandler.UnlockSlot)
	doctors.Get("/:id/waiting-list", waitingListHandler.ListByDoctor)

	patients := api.Group("/patients")
	patients.Post("/", patientHandler.CreatePatient)
	patients.Get("/", patientHandler.ListPatients)
	patients.Get("/search", patientHandler.SearchPatients)
	patients.Get("/:id", patientHandler.GetPatient)
	patients.Put("/:id", patientHandler.UpdatePatient)
	patients.Delete("/:id", patientHandler.DeletePatient)
	patients.Get("/:id/appointments", appointmentHandler.ListPatientAppointments)
	patients.Delete("/:id/appointments", appointmentHandler.ClearPatientHistory)

	appointments := api.Group("/appointments")
	appointments.Post("/book", appointmentHandler.BookAppointment)
	appointments.Post("/", appointmentHandler.CreateAppointment)
	appointments.Get("/:id", appointmentHandler.GetAppointment)
	appointments.Put("/:id", appointmentHandler.UpdateAppointment)
	appointments.Delete("/:id", appointmentHandler.DeleteAppointment)

	waitingList := api.Group("/waiting-list")
	waitingList.Post("/", waitingListHandler.AddEntry)
	waitingList.Put("/:id", waitingListHandler.UpdateEntry)
	waitingList.Delete("/:id", waitingListHandler.DeleteEntry)
	waitingList.Post("/:id/book", waitingListHandler.ConvertEntry)

	news := api.Group("/news")
	news.Post("/", newsHandler.CreatePost)
	news.Get("/", newsHandler.ListPosts)
	news.Get("/:id", newsHandler.GetPost)
	news.Put("/:id", newsHandler.UpdatePost)
	news.Delete("/:id", newsHandler.DeletePost)
	news.Post("/:id/image", newsHandler.UploadImage)

	return nil
}

func (a *App) Start() error {
	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Setup routes
	if err := a.setupRoutes(); err != nil {
		return fmt.Errorf("failed to setup routes: %v", err)
	}

	// Start server in a goroutine
	go func() {
		if err := a.Fiber.Listen(":" + a.Config.ServerPort); err != nil {
			a.Logger.Fatal("failed to start server",
				zap.Error(err),
				zap.String("port", a.Config.ServerPort))
		}
	}()

	a.Logger.Info("server started",
		zap.String("port", a.Config.ServerPort))

	// Wait for interrupt signal
	<-sigChan
	a.Logger.Info("shutting down server...")

	// Cleanup
	if err := a.Fiber.Shutdown(); err != nil {
		a.Logger.Error("error during server shutdown",
			zap.Error(err))
	}
	a.Postgres.Close()
	if err := a.Redis.Close(); err != nil {
		a.Logger.Error("error closing redis connection",
			zap.Error(err))
	}
	if err := a.Mongo.Disconnect(a.Ctx); err != nil {
		a.Logger.Error("error closing mongodb connection",
			zap.Error(err))
	}
	if err := a.Logger.Sync(); err != nil {
		log.Printf("error syncing logger: %v", err)
	}

	return nil
}

func main() {
	app, err := NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Start(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
