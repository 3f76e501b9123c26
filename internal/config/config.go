package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type AssignmentServiceConfig struct {
	Port        string
	LogCfg      LogConfig
	PostgresCfg PostgresConfig
	RedisCfg    RedisConfig
	RabbitMQCfg RabbitMQConfig
	TrackerCfg  TrackerConfig
	BreakerCfg  BreakerConfig
	WizardCfg   WizardConfig
}

type WeatherServiceConfig struct {
	Port          string
	LogCfg        LogConfig
	PostgresCfg   PostgresConfig
	RedisCfg      RedisConfig
	RabbitMQCfg   RabbitMQConfig
	MinioCfg      MinioConfig
	WeatherAPICfg WeatherAPIConfig
	ExecutorCfg   ExecutorConfig
	BreakerCfg    BreakerConfig
}

type LogConfig struct {
	Dir    string
	Level  string
	Format string
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	Username   string
	Password   string
	Host       string
	Port       string
	MaxRetries int
}

type MinioConfig struct {
	MinioURL       string
	MinioAccessKey string
	MinioSecretKey string
	MinioLocation  string
	MinioSecure    string
	PresignExpiry  time.Duration
}

type WeatherAPIConfig struct {
	APIKey  string
	BaseURL string
	Units   string
	Timeout time.Duration
}

// TrackerConfig tunes how the assignment service observes weather jobs.
type TrackerConfig struct {
	PollInitialInterval time.Duration
	PollMaxInterval     time.Duration
	MaxRangeDays        int
	WaitTimeout         time.Duration
	UsePush             bool
}

type BreakerConfig struct {
	MaxFailures int
	OpenTimeout time.Duration
	Interval    time.Duration
}

type WizardConfig struct {
	SessionTTL time.Duration
	TotalSteps int
	ProductTTL time.Duration
}

type ExecutorConfig struct {
	NumWorkers     int
	RequeueAfter   time.Duration
	JobTimeout     time.Duration
	ScanInterval   time.Duration
	RequestTimeout time.Duration
}

func NewAssignmentServiceConfig() *AssignmentServiceConfig {
	return &AssignmentServiceConfig{
		Port:        getEnvOrDefault("PORT", "8088"),
		LogCfg:      newLogConfig("assignment_service"),
		PostgresCfg: newPostgresConfig(),
		RedisCfg:    newRedisConfig(),
		RabbitMQCfg: newRabbitMQConfig(),
		TrackerCfg: TrackerConfig{
			PollInitialInterval: getEnvDuration("TRACKER_POLL_INITIAL", 2*time.Second),
			PollMaxInterval:     getEnvDuration("TRACKER_POLL_MAX", 30*time.Second),
			MaxRangeDays:        getEnvInt("TRACKER_MAX_RANGE_DAYS", 366),
			WaitTimeout:         getEnvDuration("TRACKER_WAIT_TIMEOUT", 60*time.Second),
			UsePush:             getEnvBool("TRACKER_USE_PUSH", true),
		},
		BreakerCfg: newBreakerConfig(),
		WizardCfg: WizardConfig{
			SessionTTL: getEnvDuration("WIZARD_SESSION_TTL", 2*time.Hour),
			TotalSteps: getEnvInt("WIZARD_TOTAL_STEPS", 2),
			ProductTTL: getEnvDuration("PRODUCT_CACHE_TTL", 10*time.Minute),
		},
	}
}

func NewWeatherServiceConfig() *WeatherServiceConfig {
	return &WeatherServiceConfig{
		Port:        getEnvOrDefault("PORT", "8086"),
		LogCfg:      newLogConfig("weather_service"),
		PostgresCfg: newPostgresConfig(),
		RedisCfg:    newRedisConfig(),
		RabbitMQCfg: newRabbitMQConfig(),
		MinioCfg: MinioConfig{
			MinioURL:       getEnvOrDefault("MINIO_ENDPOINT", "http://localhost:9407"),
			MinioAccessKey: getEnvOrDefault("MINIO_ACCESS_KEY", "minio"),
			MinioSecretKey: getEnvOrDefault("MINIO_SECRET_KEY", "minio123"),
			MinioLocation:  getEnvOrDefault("MINIO_LOCATION", "us-east-1"),
			MinioSecure:    getEnvOrDefault("MINIO_SECURE", "false"),
			PresignExpiry:  getEnvDuration("MINIO_PRESIGN_EXPIRY", 7*24*time.Hour),
		},
		WeatherAPICfg: WeatherAPIConfig{
			APIKey:  getEnvOrDefault("WEATHER_API_KEY", ""),
			BaseURL: getEnvOrDefault("WEATHER_API_BASE_URL", "https://api.openweathermap.org/data/3.0"),
			Units:   getEnvOrDefault("WEATHER_API_UNITS", "metric"),
			Timeout: getEnvDuration("WEATHER_API_TIMEOUT", 15*time.Second),
		},
		ExecutorCfg: ExecutorConfig{
			NumWorkers:     getEnvInt("EXECUTOR_WORKERS", 4),
			RequeueAfter:   getEnvDuration("REQUEUE_AFTER", 5*time.Minute),
			JobTimeout:     getEnvDuration("JOB_TIMEOUT", 30*time.Minute),
			ScanInterval:   getEnvDuration("EXECUTOR_SCAN_INTERVAL", time.Minute),
			RequestTimeout: getEnvDuration("EXECUTOR_REQUEST_TIMEOUT", 10*time.Minute),
		},
		BreakerCfg: newBreakerConfig(),
	}
}

func newLogConfig(service string) LogConfig {
	return LogConfig{
		Dir:    getEnvOrDefault("LOG_DIR", "/agrisa/log/"+service),
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

func newPostgresConfig() PostgresConfig {
	return PostgresConfig{
		DBname:   getEnvOrDefault("POSTGRES_DB", "agrisa"),
		Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
		Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
		Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
	}
}

func newRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
		Port:     getEnvOrDefault("REDIS_PORT", "6379"),
		Password: getEnvOrDefault("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

func newRabbitMQConfig() RabbitMQConfig {
	return RabbitMQConfig{
		Username:   getEnvOrDefault("RABBITMQ_USER", "admin"),
		Password:   getEnvOrDefault("RABBITMQ_PWD", "admin"),
		Host:       getEnvOrDefault("RABBITMQ_HOST", "localhost"),
		Port:       getEnvOrDefault("RABBITMQ_PORT", "5672"),
		MaxRetries: getEnvInt("RABBITMQ_MAX_RETRIES", 5),
	}
}

func newBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: getEnvInt("BREAKER_MAX_FAILURES", 5),
		OpenTimeout: getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		Interval:    getEnvDuration("BREAKER_INTERVAL", time.Minute),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid integer for %s=%q, using default %d", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid duration for %s=%q, using default %s", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("invalid boolean for %s=%q, using default %t", key, raw, defaultValue)
		return defaultValue
	}
	return value
}
