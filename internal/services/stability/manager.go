package stability

import (
	"time"

	"SignalFuse/internal/domain/models"
	"SignalFuse/pkg/util"
)

// Event classifies what a stability pass did with a resolution.
type Event string

const (
	EventAdopted    Event = "adopted"    // no prior decision, or hold period elapsed
	EventRefreshed  Event = "refreshed"  // same verdict, timestamps refreshed
	EventHeld       Event = "held"       // locked, contradiction below the threshold
	EventOverridden Event = "overridden" // confirmation threshold reached, verdict replaced
)

// Config holds the stability tunables. Hold tiers are expressed in trading
// days; weekends do not count toward a hold.
type Config struct {
	Confirmations   int     // consecutive contradicting cycles required to override a lock
	StrongThreshold float64 // confidence tier for the long hold
	FirmThreshold   float64 // confidence tier for the medium hold
	StrongHoldDays  int
	FirmHoldDays    int
	WeakHoldDays    int
	HistoryCap      int
}

// Manager applies hold periods and the consecutive-confirmation override.
// It is the only writer of Decision records; a single noisy cycle can never
// flip a locked recommendation.
type Manager struct {
	cfg Config
}

func New(cfg Config) *Manager {
	if cfg.Confirmations <= 0 {
		cfg.Confirmations = 3
	}
	if cfg.StrongThreshold <= 0 {
		cfg.StrongThreshold = 0.85
	}
	if cfg.FirmThreshold <= 0 {
		cfg.FirmThreshold = 0.70
	}
	if cfg.StrongHoldDays <= 0 {
		cfg.StrongHoldDays = 30
	}
	if cfg.FirmHoldDays <= 0 {
		cfg.FirmHoldDays = 5
	}
	if cfg.WeakHoldDays <= 0 {
		cfg.WeakHoldDays = 1
	}
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = 200
	}
	return &Manager{cfg: cfg}
}

// Apply folds a fresh resolution into the current decision for one
// (instrument, horizon) key. current may be nil. The returned decision is a
// new value; Apply never mutates its inputs.
func (m *Manager) Apply(current *models.Decision, instrumentID, horizon string, res models.Resolution, now time.Time) (*models.Decision, Event) {
	if current == nil {
		return m.adopt(nil, instrumentID, horizon, res, now, models.LockReasonNew), EventAdopted
	}

	// expired lock unlocks before the new resolution is considered
	if !current.Locked(now) {
		if res.Verdict == current.Verdict {
			d := clone(current)
			d.Confidence = res.Confidence
			d.Contested = res.Contested
			d.Reasons = res.Reasons
			d.Conflicts = res.Conflicts
			d.LockedUntil = m.holdUntil(res.Confidence, now)
			d.LockReason = models.LockReasonRefreshed
			d.PendingVerdict = ""
			d.PendingCount = 0
			d.UpdatedAt = now
			return d, EventRefreshed
		}
		return m.adopt(current, instrumentID, horizon, res, now, models.LockReasonNew), EventAdopted
	}

	if res.Verdict == current.Verdict {
		// agreement while locked clears any pending contradiction
		d := clone(current)
		d.PendingVerdict = ""
		d.PendingCount = 0
		d.UpdatedAt = now
		return d, EventRefreshed
	}

	d := clone(current)
	if res.Verdict == current.PendingVerdict {
		d.PendingCount++
	} else {
		d.PendingVerdict = res.Verdict
		d.PendingCount = 1
	}
	d.UpdatedAt = now

	if d.PendingCount >= m.cfg.Confirmations {
		return m.adopt(current, instrumentID, horizon, res, now, models.LockReasonOverride), EventOverridden
	}
	return d, EventHeld
}

// adopt builds the replacement decision, archiving prev into bounded history.
func (m *Manager) adopt(prev *models.Decision, instrumentID, horizon string, res models.Resolution, now time.Time, reason string) *models.Decision {
	d := &models.Decision{
		InstrumentID: instrumentID,
		Horizon:      horizon,
		Verdict:      res.Verdict,
		Confidence:   res.Confidence,
		Contested:    res.Contested,
		Reasons:      res.Reasons,
		Conflicts:    res.Conflicts,
		LockedUntil:  m.holdUntil(res.Confidence, now),
		LockReason:   reason,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if prev != nil {
		d.History = append(append([]models.DecisionSnapshot(nil), prev.History...), prev.Snapshot(now))
		if len(d.History) > m.cfg.HistoryCap {
			d.History = d.History[len(d.History)-m.cfg.HistoryCap:]
		}
	}
	return d
}

// holdUntil computes the lock expiry: higher confidence holds longer.
func (m *Manager) holdUntil(confidence float64, now time.Time) time.Time {
	days := m.cfg.WeakHoldDays
	switch {
	case confidence >= m.cfg.StrongThreshold:
		days = m.cfg.StrongHoldDays
	case confidence >= m.cfg.FirmThreshold:
		days = m.cfg.FirmHoldDays
	}
	return util.AddTradingDays(now, days)
}

func clone(d *models.Decision) *models.Decision {
	cp := *d
	cp.Reasons = append([]string(nil), d.Reasons...)
	cp.Conflicts = append([]models.Signal(nil), d.Conflicts...)
	cp.History = append([]models.DecisionSnapshot(nil), d.History...)
	return &cp
}
