package usecase

import (
	"context"
	"encoding/json"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
)

// OutcomeSink accepts one resolved outcome. Implemented by OutcomeIngest and
// by the intake pipeline that wraps it.
type OutcomeSink interface {
	Ingest(ctx context.Context, o *models.Outcome) error
}

// KafkaOutcomesHandler consumes resolved-outcome messages from the feedback
// topic and routes them into the trust model.
type KafkaOutcomesHandler struct {
	topic   string
	ingest  OutcomeSink
	metrics domrepo.Metrics
}

func NewKafkaOutcomesHandler(topic string, ingest OutcomeSink, metrics domrepo.Metrics) *KafkaOutcomesHandler {
	return &KafkaOutcomesHandler{topic: topic, ingest: ingest, metrics: metrics}
}

func (h *KafkaOutcomesHandler) Topic() string { return h.topic }

// incoming message schema: {source_id, instrument_id, horizon, was_correct, resolved_at}
func (h *KafkaOutcomesHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		SourceID     string    `json:"source_id"`
		InstrumentID string    `json:"instrument_id"`
		Horizon      string    `json:"horizon"`
		WasCorrect   bool      `json:"was_correct"`
		ResolvedAt   time.Time `json:"resolved_at"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		if h.metrics != nil {
			h.metrics.RecordError("consumer_unmarshal")
		}
		return err
	}

	// feedback-loop lag from resolution time to ingestion
	if h.metrics != nil && !m.ResolvedAt.IsZero() {
		h.metrics.RecordLatency("outcome_e2e_seconds", time.Since(m.ResolvedAt).Seconds())
	}

	return h.ingest.Ingest(ctx, &models.Outcome{
		SourceID:     m.SourceID,
		InstrumentID: m.InstrumentID,
		Horizon:      m.Horizon,
		WasCorrect:   m.WasCorrect,
		ResolvedAt:   m.ResolvedAt,
	})
}
