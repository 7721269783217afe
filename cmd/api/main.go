package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/cloudinary"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/mongo"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/redis"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/auth"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/config"
	httphandler "github.com/robertarktes/hotel-reservations-and-rooms/internal/http"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/idempotency"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/inventory"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/ledger"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/observability"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/rateLimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	archive := mongoadapter.NewArchiveRepository(mongoClient.Database("hrr"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	uploader := cloudinary.NewUploader(cfg.CloudinaryCloud, cfg.CloudinaryKey, cfg.CloudinarySecret, cfg.CloudinaryFolder)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	inventorySvc := inventory.NewService(repo, rabbitPub, logger)
	ledgerSvc := ledger.NewService(repo, redisCache, archive, rabbitPub, logger, cfg.RoomLockTTL)

	handlers := httphandler.NewHandlers(cfg, inventorySvc, ledgerSvc, uploader, idemp, logger)
	r := httphandler.SetupRouter(handlers, logger, verifier, rl, idemp)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
