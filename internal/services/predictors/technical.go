package predictors

import (
	"context"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/pkg/config"
)

// Technical queries the technical-analysis rule engine over HTTP.
type Technical struct {
	base *httpBase
}

func NewTechnical(cfg *config.Config) *Technical {
	return &Technical{
		base: newHTTPBase(cfg.Predictors.Technical.URL, cfg.Predictors.Timeout, cfg.Predictors.CacheTTL),
	}
}

func (t *Technical) SourceID() string { return "technical" }

func (t *Technical) Opinion(ctx context.Context, instrumentID string, horizon domrepo.Horizon) (*models.Opinion, bool, error) {
	return t.base.fetchOpinion(ctx, "/predict", instrumentID, horizon)
}
