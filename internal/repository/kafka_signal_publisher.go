package repository

import (
	"context"
	"fmt"

	"marketpulse/internal/domain/models"
	pkgkafka "marketpulse/pkg/kafka"
	applogger "marketpulse/pkg/logger"
)

// Topics for downstream analysis consumers.
const (
	TopicSignalEvents  = "marketpulse.signal.events"
	TopicPatternEvents = "marketpulse.pattern.events"
)

// KafkaEventPublisher implements EventPublisher on top of the shared Kafka
// producer. Publishing is best-effort from the caller's point of view, but
// errors are still returned so callers can log them.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	l        *applogger.Logger
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, l *applogger.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, l: l}
}

func (p *KafkaEventPublisher) PublishSignal(ctx context.Context, sig *models.SynthesizedSignal) error {
	key := []byte(sig.Instrument + ":" + sig.Timeframe)
	if err := p.producer.Publish(ctx, TopicSignalEvents, key, sig); err != nil {
		return fmt.Errorf("publish signal event: %w", err)
	}
	p.l.Debug("signal event published",
		applogger.String("instrument", sig.Instrument),
		applogger.String("type", string(sig.Type)))
	return nil
}

func (p *KafkaEventPublisher) PublishPatterns(ctx context.Context, batch *models.PatternBatch) error {
	key := []byte(batch.Instrument + ":" + batch.Timeframe)
	if err := p.producer.Publish(ctx, TopicPatternEvents, key, batch); err != nil {
		return fmt.Errorf("publish pattern batch: %w", err)
	}
	p.l.Debug("pattern batch published",
		applogger.String("instrument", batch.Instrument),
		applogger.Int("patterns", batch.TotalPatterns))
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}
