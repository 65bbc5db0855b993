package service

import (
	"context"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
)

// PredictorSource exposes one external predictor's latest opinion.
// An (nil, false, nil) return means the source has no opinion right now;
// the collector omits it rather than defaulting to neutral.
type PredictorSource interface {
	SourceID() string
	Opinion(ctx context.Context, instrumentID string, horizon domrepo.Horizon) (*models.Opinion, bool, error)
}

// TrustModel derives per-source influence weights from observed outcomes.
// Implementations must normalize weights to sum to 1 across sources present.
type TrustModel interface {
	RecordOutcome(ctx context.Context, o *models.Outcome) error
	WeightsFor(ctx context.Context, instrumentID string, horizon domrepo.Horizon) (map[string]float64, error)
}
