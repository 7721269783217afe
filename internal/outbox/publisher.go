package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/crdb"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/rabbit"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/observability"
)

// Publisher drains NEW outbox rows to the event exchange. Rows that fail to
// publish stay NEW and are retried on the next pass.
type Publisher struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishBatch(ctx)
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) {
	// Claim, publish and mark in one transaction so the SKIP LOCKED claim
	// holds until the batch is done and a second publisher instance cannot
	// double-publish the same rows.
	err := p.repo.WithTx(ctx, func(tx pgx.Tx) error {
		records, err := p.repo.GetUnpublishedOutbox(ctx, tx, 10)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			observability.OutboxLag.Set(0)
			return nil
		}
		observability.OutboxLag.Set(time.Since(records[0].CreatedAt).Seconds())

		for _, rec := range records {
			msg := amqp.Publishing{
				MessageId:   rec.DedupeKey,
				ContentType: "application/json",
				Body:        rec.Payload,
			}
			if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
				observability.RabbitPublishRetries.Inc()
				p.logger.WithField("outbox_id", rec.ID).Error("failed to publish outbox record", err)
				continue
			}
			if err := p.repo.MarkPublished(ctx, tx, rec.ID, time.Now(), rec.DedupeKey); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		p.logger.Error("outbox batch failed", err)
	}
}
