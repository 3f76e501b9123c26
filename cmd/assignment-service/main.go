package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrisa-ops/internal/config"
	"agrisa-ops/internal/database/postgres"
	"agrisa-ops/internal/database/redis"
	"agrisa-ops/internal/event"
	"agrisa-ops/internal/gateway"
	"agrisa-ops/internal/handlers"
	"agrisa-ops/internal/logger"
	"agrisa-ops/internal/repository"
	"agrisa-ops/internal/services"
	"agrisa-ops/internal/weatherjob"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := config.NewAssignmentServiceConfig()

	logFile, err := logger.Setup(cfg.LogCfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	var db *sqlx.DB
	db, err = postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		log.Printf("error connect to database: %s", err)
		postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}
	defer db.Close()

	redisClient, err := redis.NewRedisClient(cfg.RedisCfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitConn.Close()
	publisher := event.NewEventPublisher(rabbitConn)

	gw := gateway.NewStoreGateway(gateway.Stores{
		Farmers:     repository.NewFarmerRepository(db),
		Plots:       repository.NewPlotRepository(db),
		Products:    repository.NewProductRepository(db, redisClient.GetClient(), cfg.WizardCfg.ProductTTL),
		Enrollments: repository.NewEnrollmentRepository(db),
		WeatherJobs: repository.NewWeatherJobRepository(db),
		Requests:    publisher,
		Updates:     event.NewJobUpdateBus(redisClient.GetClient()),
	}, cfg.BreakerCfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hub *weatherjob.Hub
	if cfg.TrackerCfg.UsePush {
		hub = weatherjob.NewHub(16)
		if err := hub.Start(ctx, gw); err != nil {
			slog.Warn("job update push disabled, falling back to polling", "error", err)
			hub = nil
		}
	}
	tracker := weatherjob.NewTracker(gw, hub, weatherjob.Config{
		PollInitialInterval: cfg.TrackerCfg.PollInitialInterval,
		PollMaxInterval:     cfg.TrackerCfg.PollMaxInterval,
		MaxRangeDays:        cfg.TrackerCfg.MaxRangeDays,
	})

	sessions := repository.NewWizardSessionRepository(redisClient.GetClient(), cfg.WizardCfg.SessionTTL)
	assignmentService := services.NewAssignmentService(gw, sessions, publisher, cfg.WizardCfg.TotalSteps)
	catalogService := services.NewCatalogService(gw)
	weatherJobService := services.NewWeatherJobService(tracker, cfg.TrackerCfg.WaitTimeout)

	app := fiber.New(fiber.Config{
		AppName:      "assignment-service",
		WriteTimeout: cfg.TrackerCfg.WaitTimeout + 10*time.Second,
	})
	app.Use(recover.New())

	app.Get("/checkhealth", func(c fiber.Ctx) error {
		if err := gw.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("Assignment service database unavailable")
		}
		if err := redisClient.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("Assignment service redis unavailable")
		}
		return c.Status(fiber.StatusOK).SendString("Assignment service is healthy")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.NewCatalogHandler(catalogService).Register(app)
	handlers.NewAssignmentHandler(assignmentService).Register(app)
	handlers.NewWeatherJobHandler(weatherJobService).Register(app)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting assignment-service on port %s", cfg.Port)
		if err := app.Listen(fmt.Sprintf("0.0.0.0:%s", cfg.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	slog.Info("assignment-service stopped", "published_events", publisher.Stats().MessagesPublished)
}
