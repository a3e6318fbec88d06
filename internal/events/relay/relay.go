// Package relay moves committed outbox entries to Kafka. Kafka is downstream
// of the store: the outbox row is the source of truth, publication is
// at-least-once, and consumers deduplicate on event id.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"wayfarer/internal/events"
	"wayfarer/internal/platform/metrics"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
)

// Relay polls the outbox and publishes pending entries.
type Relay struct {
	outbox  events.Outbox
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics

	pollInterval time.Duration
	batchSize    int
}

func New(outbox events.Outbox, client *kgo.Client, topic string, logger *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		outbox:       outbox,
		client:       client,
		topic:        topic,
		logger:       logger,
		metrics:      m,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
	}
}

// EnsureTopic creates the claim topic when it does not exist yet. Safe to call
// on every startup.
func (r *Relay) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(r.client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, r.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", r.topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.topic, res.Err)
		}
	}
	return nil
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// drain publishes one batch of pending entries and acknowledges the ones that
// landed. A partial failure leaves the unpublished rows pending for the next
// tick.
func (r *Relay) drain(ctx context.Context) error {
	entries, err := r.outbox.Pending(ctx, r.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		record := &kgo.Record{
			Topic: r.topic,
			Key:   []byte(entry.Event.UserID),
			Value: entry.Payload,
		}
		if err := r.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			if r.metrics != nil {
				r.metrics.OutboxPublishErrs.Inc()
			}
			r.logger.WarnContext(ctx, "outbox publish failed",
				"event_id", entry.ID,
				"error", err,
			)
			break
		}
		published = append(published, entry.ID)
		if r.metrics != nil {
			r.metrics.OutboxPublished.Inc()
		}
	}

	if len(published) == 0 {
		return nil
	}
	return r.outbox.MarkPublished(ctx, published, time.Now())
}
