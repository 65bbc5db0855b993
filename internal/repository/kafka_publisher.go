package repository

import (
	"context"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	pkgkafka "SignalFuse/pkg/kafka"
)

// KafkaDecisionPublisher emits decision-change events so downstream
// consumers (alerting, dashboards) learn about adoptions without polling.
type KafkaDecisionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

func (p *KafkaDecisionPublisher) PublishDecision(ctx context.Context, d *models.Decision) error {
	key := []byte(d.InstrumentID + ":" + d.Horizon)
	return p.producer.Publish(ctx, p.topic, key, map[string]interface{}{
		"instrument_id": d.InstrumentID,
		"horizon":       d.Horizon,
		"verdict":       string(d.Verdict),
		"confidence":    d.Confidence,
		"contested":     d.Contested,
		"lock_reason":   d.LockReason,
		"locked_until":  d.LockedUntil,
		"updated_at":    d.UpdatedAt,
	})
}

func (p *KafkaDecisionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
