package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	domsvc "SignalFuse/internal/domain/service"
	applogger "SignalFuse/pkg/logger"
)

// OutcomeIngest feeds resolved prediction outcomes into the trust model and
// mirrors them into the archive for offline analysis.
type OutcomeIngest struct {
	trust   domsvc.TrustModel
	archive domrepo.Archive
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewOutcomeIngest(trust domsvc.TrustModel, metrics domrepo.Metrics) *OutcomeIngest {
	return &OutcomeIngest{trust: trust, metrics: metrics}
}

// SetArchive injects the analytical sink.
func (u *OutcomeIngest) SetArchive(a domrepo.Archive) { u.archive = a }

// SetLogger injects a structured logger.
func (u *OutcomeIngest) SetLogger(l *applogger.Logger) { u.l = l }

// Ingest validates and records one outcome. The trust update is the
// authoritative write; the archive append is best-effort.
func (u *OutcomeIngest) Ingest(ctx context.Context, o *models.Outcome) error {
	if o == nil {
		return fmt.Errorf("outcome is nil")
	}
	if o.SourceID == "" || o.InstrumentID == "" {
		u.recordError("outcome_invalid")
		return fmt.Errorf("outcome missing source or instrument")
	}
	if !domrepo.IsValidHorizon(domrepo.Horizon(o.Horizon)) {
		u.recordError("outcome_invalid")
		return fmt.Errorf("outcome has unknown horizon %q", o.Horizon)
	}
	if o.ResolvedAt.IsZero() {
		o.ResolvedAt = time.Now()
	}

	if err := u.trust.RecordOutcome(ctx, o); err != nil {
		u.recordError("outcome_record")
		return fmt.Errorf("record outcome: %w", err)
	}

	if u.archive != nil {
		if err := u.archive.AppendOutcome(ctx, o); err != nil {
			u.recordError("archive")
			if u.l != nil {
				u.l.Warn("outcome archive failed",
					applogger.String("source", o.SourceID),
					applogger.String("instrument", o.InstrumentID),
					applogger.Error(err))
			}
		}
	}
	return nil
}

func (u *OutcomeIngest) recordError(kind string) {
	if u.metrics != nil {
		u.metrics.RecordError(kind)
	}
}
