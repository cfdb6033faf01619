package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion         string
	DynamoDBTable     string
	ActivityIndexName string // GSI1 - active-user and training-data queries
	DynamoDBEndpoint  string // local endpoint override, empty in AWS

	// Redis configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTimeout  time.Duration

	// Queue capacities
	MLTrainingQueueSize   int
	AnalyticsQueueSize    int
	CacheRefreshQueueSize int

	// Scheduler intervals
	ModelTrainingInterval  time.Duration
	AnalyticsBatchInterval time.Duration
	CacheRefreshInterval   time.Duration
	MonitoringInterval     time.Duration

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableCORS bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AWSRegion:         getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:     getEnv("DYNAMODB_TABLE", "learnlytics"),
		ActivityIndexName: getEnv("ACTIVITY_INDEX_NAME", "ActivityIndex"),
		DynamoDBEndpoint:  getEnv("DYNAMODB_ENDPOINT", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisTimeout:  getEnvDuration("REDIS_TIMEOUT", 3*time.Second),

		MLTrainingQueueSize:   getEnvInt("ML_TRAINING_QUEUE_SIZE", 100),
		AnalyticsQueueSize:    getEnvInt("ANALYTICS_QUEUE_SIZE", 500),
		CacheRefreshQueueSize: getEnvInt("CACHE_REFRESH_QUEUE_SIZE", 200),

		ModelTrainingInterval:  getEnvDuration("MODEL_TRAINING_INTERVAL", time.Hour),
		AnalyticsBatchInterval: getEnvDuration("ANALYTICS_BATCH_INTERVAL", 5*time.Minute),
		CacheRefreshInterval:   getEnvDuration("CACHE_REFRESH_INTERVAL", 10*time.Minute),
		MonitoringInterval:     getEnvDuration("MONITORING_INTERVAL", time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "learnlytics-backend"),

		EnableCORS: getEnvBool("ENABLE_CORS", true),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required")
		}
	}

	if c.MLTrainingQueueSize <= 0 || c.AnalyticsQueueSize <= 0 || c.CacheRefreshQueueSize <= 0 {
		return fmt.Errorf("queue sizes must be positive")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
