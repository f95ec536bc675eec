package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	RecordStoreMongo    = "mongo"
	RecordStorePostgres = "postgres"
)

// Config holds everything the server and CLI need to wire the try-on pipeline.
type Config struct {
	Port string

	RecordStore   string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	AWSRegion         string
	S3Endpoint        string
	S3UsePathStyle    bool
	ModelBucket       string
	GarmentBucket     string
	ResultBucket      string
	PublicBaseURL     string
	PresignExpiration time.Duration

	FalAPIKey       string
	FalBaseURL      string
	PollInterval    time.Duration
	PollMaxAttempts int
	MaxImageWidth   int

	JWTSecret string
	TokenTTL  time.Duration

	NATSURL     string
	NATSSubject string
}

// LoadConfig loads environment variables from .env file
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values or system environment variables")
	}

	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		RecordStore:   getenv("RECORD_STORE", RecordStoreMongo),
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017/"),
		MongoDatabase: getenv("MONGO_DATABASE", "fitly"),
		DatabaseURL:   getenv("DATABASE_URL", "postgres://localhost/fitly?sslmode=disable"),

		AWSRegion:     getenv("AWS_REGION", "us-east-1"),
		S3Endpoint:    os.Getenv("AWS_S3_ENDPOINT"),
		ModelBucket:   getenv("MODEL_BUCKET", "model-images"),
		GarmentBucket: getenv("GARMENT_BUCKET", "garment-images"),
		ResultBucket:  getenv("RESULT_BUCKET", "result-images"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),

		FalAPIKey:  os.Getenv("FAL_API_KEY"),
		FalBaseURL: getenv("FAL_BASE_URL", "https://queue.fal.run/fashn/tryon"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: getenv("NATS_SUBJECT", "tryon.events"),
	}

	var err error
	if cfg.S3UsePathStyle, err = getenvBool("AWS_S3_USE_PATH_STYLE", cfg.S3Endpoint != ""); err != nil {
		return nil, err
	}
	if cfg.PresignExpiration, err = getenvDuration("PRESIGN_EXPIRATION", time.Hour); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getenvDuration("POLL_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.PollMaxAttempts, err = getenvInt("POLL_MAX_ATTEMPTS", 30); err != nil {
		return nil, err
	}
	if cfg.MaxImageWidth, err = getenvInt("MAX_IMAGE_WIDTH", 1024); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getenvDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.RecordStore {
	case RecordStoreMongo, RecordStorePostgres:
	default:
		return fmt.Errorf("RECORD_STORE must be %q or %q, got %q", RecordStoreMongo, RecordStorePostgres, c.RecordStore)
	}
	if c.FalAPIKey == "" {
		return fmt.Errorf("FAL_API_KEY is not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if c.PollMaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive, got %d", c.PollMaxAttempts)
	}
	if c.MaxImageWidth <= 0 {
		return fmt.Errorf("MAX_IMAGE_WIDTH must be positive, got %d", c.MaxImageWidth)
	}
	return nil
}

func getenv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getenvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getenvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getenvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
