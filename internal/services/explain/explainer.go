package explain

import (
	"fmt"
	"strings"
	"time"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/services/resolver"
)

// Explain renders a Decision into a display-ready summary. It is a pure
// mapping: no clock reads besides the passed-in time, no external calls.
func Explain(d *models.Decision, now time.Time) models.HumanSummary {
	s := models.HumanSummary{
		InstrumentID: d.InstrumentID,
		Horizon:      d.Horizon,
		Verdict:      d.Verdict,
		Reasons:      append([]string(nil), d.Reasons...),
		GeneratedAt:  now,
	}
	for _, c := range d.Conflicts {
		s.Conflicts = append(s.Conflicts,
			fmt.Sprintf("%s disagrees: %s at confidence %.2f", c.SourceID, c.Direction, c.Confidence))
	}
	s.Headline = headline(d)
	return s
}

func headline(d *models.Decision) string {
	var b strings.Builder

	switch {
	case len(d.Reasons) == 1 && d.Reasons[0] == resolver.NoDataReason:
		fmt.Fprintf(&b, "No usable signals for %s on the %s horizon; holding without a view.",
			d.InstrumentID, d.Horizon)
		return b.String()
	case d.Contested && len(d.Conflicts) > 0:
		fmt.Fprintf(&b, "Sources disagree on %s: %s, but %s. Recommendation capped at %s pending confirmation.",
			d.InstrumentID, leadReason(d), leadConflict(d), verdictPhrase(d.Verdict))
	case len(d.Conflicts) > 0:
		fmt.Fprintf(&b, "%s on %s, led by %s; %s dissents.",
			verdictSentence(d.Verdict), d.InstrumentID, leadReason(d), conflictSources(d))
	default:
		fmt.Fprintf(&b, "%s on %s with unanimous support, led by %s.",
			verdictSentence(d.Verdict), d.InstrumentID, leadReason(d))
	}

	if d.PendingCount > 0 {
		fmt.Fprintf(&b, " A change to %s is pending (%d confirming cycles so far).",
			d.PendingVerdict, d.PendingCount)
	}
	return b.String()
}

func leadReason(d *models.Decision) string {
	if len(d.Reasons) == 0 {
		return "no supporting signals"
	}
	return d.Reasons[0]
}

func leadConflict(d *models.Decision) string {
	c := d.Conflicts[0]
	return fmt.Sprintf("%s predicts %s at confidence %.2f", c.SourceID, c.Direction, c.Confidence)
}

func conflictSources(d *models.Decision) string {
	names := make([]string, 0, len(d.Conflicts))
	for _, c := range d.Conflicts {
		names = append(names, c.SourceID)
	}
	return strings.Join(names, ", ")
}

func verdictSentence(v models.Verdict) string {
	switch v {
	case models.VerdictStrongBuy:
		return "Strong buy"
	case models.VerdictBuy:
		return "Buy"
	case models.VerdictCautious:
		return "Caution advised"
	case models.VerdictAvoid:
		return "Avoid"
	default:
		return "Hold"
	}
}

func verdictPhrase(v models.Verdict) string {
	switch v {
	case models.VerdictStrongBuy:
		return "STRONG_BUY"
	case models.VerdictBuy:
		return "BUY"
	case models.VerdictCautious:
		return "CAUTIOUS"
	case models.VerdictAvoid:
		return "AVOID"
	default:
		return "HOLD"
	}
}
