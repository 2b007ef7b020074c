package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher mirrors audit records to a topic for compliance tooling.
// Production is asynchronous and guarded by a circuit breaker; a broker
// outage drops fan-out, never the request.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	breaker *circuitBreaker
	logger  *slog.Logger
}

func NewKafkaPublisher(client *kgo.Client, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		client:  client,
		topic:   topic,
		breaker: newCircuitBreaker(5, 30*time.Second),
		logger:  logger,
	}
}

// Publish enqueues the record keyed by organization so each org's trail stays
// ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, rec Record) {
	if !p.breaker.allow() {
		return
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		p.logger.ErrorContext(ctx, "audit record not serializable", "error", err, "record_id", rec.ID.String())
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte("org:" + rec.OrganizationID.String()),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.breaker.recordFailure()
			p.logger.WarnContext(ctx, "audit stream publish failed", "error", err, "topic", p.topic)
			return
		}
		p.breaker.recordSuccess()
	})
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return err
	}
	p.client.Close()
	return nil
}
