package resolver

import (
	"fmt"
	"sort"

	"SignalFuse/internal/domain/models"
)

// NoDataReason is the reason recorded when no usable signals exist.
const NoDataReason = "no data available"

// Config holds the resolver thresholds. All values are tunable; the defaults
// live in pkg/config.
type Config struct {
	ContestedGap    float64 // second score within this relative gap of the winner => contested
	StrongThreshold float64 // confidence tier for STRONG_BUY / AVOID
	BuyThreshold    float64 // confidence tier for BUY / CAUTIOUS
}

// Resolver combines weighted signals into a single verdict. It is a pure
// scoring function: identical inputs always produce identical output.
type Resolver struct {
	cfg Config
}

func New(cfg Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// fixed direction order keeps winner selection deterministic on score ties
var directionOrder = []models.Direction{models.DirectionUp, models.DirectionDown, models.DirectionFlat}

// Resolve computes the weighted vote across signals. Weights are looked up by
// source; sources absent from the map share the mean weight of the present
// ones, and weights are re-normalized over the sources that actually emitted,
// so offline predictors redistribute trust instead of biasing the vote.
func (r *Resolver) Resolve(signals []models.Signal, weights map[string]float64) models.Resolution {
	if len(signals) == 0 {
		return models.Resolution{
			Direction:  models.DirectionFlat,
			Verdict:    models.VerdictHold,
			Confidence: 0,
			Reasons:    []string{NoDataReason},
		}
	}

	w := effectiveWeights(signals, weights)

	scores := make(map[models.Direction]float64, 3)
	for _, s := range signals {
		scores[s.Direction] += s.Confidence * w[s.SourceID]
	}

	var winner models.Direction
	var best, second, total float64
	for _, dir := range directionOrder {
		total += scores[dir]
		if scores[dir] > best {
			second = best
			best = scores[dir]
			winner = dir
		} else if scores[dir] > second {
			second = scores[dir]
		}
	}

	if total == 0 {
		return models.Resolution{
			Direction:  models.DirectionFlat,
			Verdict:    models.VerdictHold,
			Confidence: 0,
			Reasons:    []string{NoDataReason},
		}
	}

	confidence := best / total
	contested := second > 0 && second >= best*(1-r.cfg.ContestedGap)

	reasons, conflicts := r.rank(signals, w, winner)

	return models.Resolution{
		Direction:  winner,
		Verdict:    r.verdict(winner, confidence, contested),
		Confidence: confidence,
		Contested:  contested,
		Reasons:    reasons,
		Conflicts:  conflicts,
	}
}

// effectiveWeights builds per-source weights normalized to sum 1 over the
// sources present in the signal set.
func effectiveWeights(signals []models.Signal, weights map[string]float64) map[string]float64 {
	present := make([]string, 0, len(signals))
	seen := make(map[string]bool, len(signals))
	for _, s := range signals {
		if !seen[s.SourceID] {
			seen[s.SourceID] = true
			present = append(present, s.SourceID)
		}
	}

	var known, sum float64
	for _, src := range present {
		if v, ok := weights[src]; ok && v > 0 {
			known++
			sum += v
		}
	}
	mean := 1.0
	if known > 0 {
		mean = sum / known
	}

	w := make(map[string]float64, len(present))
	var totalW float64
	for _, src := range present {
		v, ok := weights[src]
		if !ok || v <= 0 {
			v = mean
		}
		w[src] = v
		totalW += v
	}
	for src := range w {
		w[src] /= totalW
	}
	return w
}

// verdict maps (direction, confidence) to the recommendation tier. Contested
// results never reach the extreme tiers.
func (r *Resolver) verdict(dir models.Direction, confidence float64, contested bool) models.Verdict {
	var v models.Verdict
	switch dir {
	case models.DirectionUp:
		switch {
		case confidence >= r.cfg.StrongThreshold:
			v = models.VerdictStrongBuy
		case confidence >= r.cfg.BuyThreshold:
			v = models.VerdictBuy
		default:
			v = models.VerdictHold
		}
	case models.DirectionDown:
		switch {
		case confidence >= r.cfg.StrongThreshold:
			v = models.VerdictAvoid
		case confidence >= r.cfg.BuyThreshold:
			v = models.VerdictCautious
		default:
			v = models.VerdictHold
		}
	default:
		v = models.VerdictHold
	}
	if contested {
		switch v {
		case models.VerdictStrongBuy:
			v = models.VerdictBuy
		case models.VerdictAvoid:
			v = models.VerdictCautious
		}
	}
	return v
}

// rank produces the top-3 supporting reasons and the full list of opposing
// signals, ordered deterministically.
func (r *Resolver) rank(signals []models.Signal, w map[string]float64, winner models.Direction) ([]string, []models.Signal) {
	type scored struct {
		sig   models.Signal
		score float64
	}

	var supporters []scored
	var conflicts []models.Signal
	for _, s := range signals {
		if s.Direction == winner {
			supporters = append(supporters, scored{sig: s, score: s.Confidence * w[s.SourceID]})
		} else {
			conflicts = append(conflicts, s)
		}
	}

	sort.Slice(supporters, func(i, j int) bool {
		if supporters[i].score != supporters[j].score {
			return supporters[i].score > supporters[j].score
		}
		return supporters[i].sig.SourceID < supporters[j].sig.SourceID
	})
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Confidence != conflicts[j].Confidence {
			return conflicts[i].Confidence > conflicts[j].Confidence
		}
		return conflicts[i].SourceID < conflicts[j].SourceID
	})

	n := len(supporters)
	if n > 3 {
		n = 3
	}
	reasons := make([]string, 0, n)
	for _, sc := range supporters[:n] {
		reasons = append(reasons, fmt.Sprintf("%s %s confidence %.2f weight %.2f",
			sc.sig.SourceID, sc.sig.Direction, sc.sig.Confidence, w[sc.sig.SourceID]))
	}
	return reasons, conflicts
}
