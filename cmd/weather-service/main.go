package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrisa-ops/internal/config"
	"agrisa-ops/internal/database/minio"
	"agrisa-ops/internal/database/postgres"
	"agrisa-ops/internal/database/redis"
	"agrisa-ops/internal/event"
	"agrisa-ops/internal/logger"
	"agrisa-ops/internal/repository"
	"agrisa-ops/internal/weather"
	"agrisa-ops/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

const (
	executorPoolName = "weather-executor"
	sweeperPoolName  = "weather-sweeper"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := config.NewWeatherServiceConfig()

	logFile, err := logger.Setup(cfg.LogCfg)
	if err != nil {
		log.Fatalf("Error setting up logging: %v", err)
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

	minioClient, err := minio.NewMinioClient(cfg.MinioCfg)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}

	rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitConn.Close()

	// the consumer owns rabbitConn.Channel; publishing gets its own channel
	publishChannel, err := rabbitConn.Connection.Channel()
	if err != nil {
		log.Fatalf("Failed to open publish channel: %v", err)
	}
	publisher := event.NewEventPublisherWithChannel(publishChannel)

	jobRepo := repository.NewWeatherJobRepository(db)
	updates := event.NewJobUpdateBus(redisClient.GetClient())
	fetcher := weather.NewOpenWeatherClient(cfg.WeatherAPICfg, cfg.BreakerCfg)

	workerManager := worker.NewWorkerManager()
	go workerManager.Run()

	executorPool := worker.NewWorkingPool(executorPoolName, cfg.ExecutorCfg.NumWorkers, cfg.ExecutorCfg.NumWorkers*4)
	executor := weather.NewExecutor(jobRepo, fetcher, minioClient, updates, executorPool, weather.ExecutorConfig{
		Bucket:        minio.Storage.WeatherExports,
		PresignExpiry: cfg.MinioCfg.PresignExpiry,
		JobTimeout:    cfg.ExecutorCfg.JobTimeout,
	})
	workerManager.StartPool(executorPool, worker.PoolTypeWorking)

	sweeperPool := worker.NewWorkingPool(sweeperPoolName, 1, 1)
	weather.NewSweeper(jobRepo, publisher, updates, cfg.ExecutorCfg.RequeueAfter, cfg.ExecutorCfg.JobTimeout).Register(sweeperPool)
	workerManager.StartPool(sweeperPool, worker.PoolTypeWorking)

	scheduler := worker.NewJobScheduler("weather-job-sweep", cfg.ExecutorCfg.ScanInterval, sweeperPool)
	scheduler.AddJob(worker.JobPayload{Type: weather.JobTypeSweep})
	workerManager.StartScheduler(scheduler)

	consumer := event.NewWeatherJobConsumer(rabbitConn, executor, cfg.ExecutorCfg.NumWorkers)
	if err := consumer.Start(workerManager.ManagerContext()); err != nil {
		log.Fatalf("Failed to start weather job consumer: %v", err)
	}

	r := gin.Default()
	weather.NewJobHandler(jobRepo, map[string]weather.HealthCheck{
		"postgres": func(context.Context) error {
			if !postgres.Healthy() {
				return fmt.Errorf("database connection lost")
			}
			return nil
		},
		"redis": redisClient.Ping,
		"minio": minioClient.Healthy,
	}).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting weather-service on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	workerManager.Shutdown()
	slog.Info("weather-service stopped", "requeued_requests", publisher.Stats().MessagesPublished)
}
