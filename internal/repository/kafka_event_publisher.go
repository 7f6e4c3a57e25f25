package repository

import (
	"context"
	"strconv"

	"ComputeOracle/internal/domain/models"
	pkgkafka "ComputeOracle/pkg/kafka"
)

// KafkaEventPublisher publishes learning events and cycle records, keyed by
// cycle so a cycle's messages stay on one partition.
type KafkaEventPublisher struct {
	producer   *pkgkafka.Producer
	learnTopic string
	cycleTopic string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, learnTopic, cycleTopic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, learnTopic: learnTopic, cycleTopic: cycleTopic}
}

func (p *KafkaEventPublisher) PublishLearningEvents(ctx context.Context, events []models.LearningEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, ev := range events {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(strconv.FormatInt(ev.Cycle, 10)),
			Value: ev,
		}
	}
	return p.producer.PublishBatch(ctx, p.learnTopic, msgs)
}

func (p *KafkaEventPublisher) PublishCycle(ctx context.Context, rec *models.CycleRecord) error {
	return p.producer.Publish(ctx, p.cycleTopic, []byte(strconv.FormatInt(rec.Cycle, 10)), rec)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopEventPublisher is used when Kafka is disabled.
type NoopEventPublisher struct{}

func (NoopEventPublisher) PublishLearningEvents(context.Context, []models.LearningEvent) error {
	return nil
}

func (NoopEventPublisher) PublishCycle(context.Context, *models.CycleRecord) error { return nil }

func (NoopEventPublisher) Close() error { return nil }
