package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/mongo"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/redis"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/config"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/ledger"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/observability"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

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

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	ledgerSvc := ledger.NewService(repo, redisCache, archive, rabbitPub, logger, cfg.RoomLockTTL)
	worker := NewSweepWorker(ledgerSvc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, cfg.SweepInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown sweep worker")
}

// SweepWorker drives the time-based ACTIVE -> COMPLETED transition. Safe to
// run alongside live booking traffic: it only touches rows whose leaving date
// has already passed.
type SweepWorker struct {
	ledger *ledger.Service
	logger observability.Logger
}

func NewSweepWorker(ledgerSvc *ledger.Service, logger observability.Logger) *SweepWorker {
	return &SweepWorker{ledger: ledgerSvc, logger: logger}
}

func (w *SweepWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			completed, err := w.ledger.CompleteExpiredBookings(ctx, now)
			if err != nil {
				w.logger.Error("sweep failed", err)
				continue
			}
			if len(completed) > 0 {
				w.logger.WithField("count", len(completed)).Info("completed expired bookings")
			}
		}
	}
}
