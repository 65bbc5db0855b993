package predictors

import (
	"context"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/internal/domain/service"
	"SignalFuse/pkg/config"
)

// Model queries one ML model serving endpoint. Endpoints are registered
// through configuration so new models join the ensemble without a deploy.
type Model struct {
	id   string
	base *httpBase
}

// NewModels builds one predictor per configured model endpoint.
func NewModels(cfg *config.Config) []service.PredictorSource {
	out := make([]service.PredictorSource, 0, len(cfg.Predictors.Models))
	for _, m := range cfg.Predictors.Models {
		out = append(out, &Model{
			id:   m.SourceID,
			base: newHTTPBase(m.URL, cfg.Predictors.Timeout, cfg.Predictors.CacheTTL),
		})
	}
	return out
}

func (m *Model) SourceID() string { return m.id }

func (m *Model) Opinion(ctx context.Context, instrumentID string, horizon domrepo.Horizon) (*models.Opinion, bool, error) {
	return m.base.fetchOpinion(ctx, "/v1/predict", instrumentID, horizon)
}
