package predictors

import (
	"context"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/pkg/config"
)

// Fundamental queries the fundamentals scorer. It has nothing to say about
// intraday moves, so the hourly horizon is declined without a network call.
type Fundamental struct {
	base *httpBase
}

func NewFundamental(cfg *config.Config) *Fundamental {
	return &Fundamental{
		base: newHTTPBase(cfg.Predictors.Fundamental.URL, cfg.Predictors.Timeout, cfg.Predictors.CacheTTL),
	}
}

func (f *Fundamental) SourceID() string { return "fundamental" }

func (f *Fundamental) Opinion(ctx context.Context, instrumentID string, horizon domrepo.Horizon) (*models.Opinion, bool, error) {
	if horizon == domrepo.H1 {
		return nil, false, nil
	}
	return f.base.fetchOpinion(ctx, "/score", instrumentID, horizon)
}
