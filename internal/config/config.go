package config

import (
	"time"

	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	CRDBDSN          string
	MongoURI         string
	RedisAddr        string
	RabbitURL        string
	JWTSecret        string
	HTTPAddr         string
	SweepInterval    time.Duration
	RoomLockTTL      time.Duration
	OTLPEndpoint     string
	CloudinaryCloud  string
	CloudinaryKey    string
	CloudinarySecret string
	CloudinaryFolder string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sweepInterval, _ := time.ParseDuration(os.Getenv("SWEEP_INTERVAL"))
	if sweepInterval == 0 {
		sweepInterval = time.Minute
	}

	roomLockTTL, _ := time.ParseDuration(os.Getenv("ROOM_LOCK_TTL"))
	if roomLockTTL == 0 {
		roomLockTTL = 5 * time.Second
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	return &Config{
		CRDBDSN:          os.Getenv("CRDB_DSN"),
		MongoURI:         os.Getenv("MONGO_URI"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RabbitURL:        os.Getenv("RABBIT_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		HTTPAddr:         httpAddr,
		SweepInterval:    sweepInterval,
		RoomLockTTL:      roomLockTTL,
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CloudinaryCloud:  os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinarySecret: os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryFolder: os.Getenv("CLOUDINARY_FOLDER"),
	}, nil
}
