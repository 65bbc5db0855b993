package explain

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/services/resolver"
)

func sampleDecision() *models.Decision {
	return &models.Decision{
		InstrumentID: "BTCUSDT",
		Horizon:      "D1",
		Verdict:      models.VerdictStrongBuy,
		Confidence:   0.91,
		Reasons: []string{
			"technical UP confidence 0.90 weight 0.45",
			"sentiment UP confidence 0.70 weight 0.30",
		},
		Conflicts: []models.Signal{
			{SourceID: "lstm", InstrumentID: "BTCUSDT", Direction: models.DirectionDown, Confidence: 0.55, Horizon: "D1"},
		},
	}
}

func TestExplainHeadlineWithDissent(t *testing.T) {
	now := time.Date(2024, 10, 7, 12, 0, 0, 0, time.UTC)
	s := Explain(sampleDecision(), now)

	if s.InstrumentID != "BTCUSDT" || s.Horizon != "D1" || s.Verdict != models.VerdictStrongBuy {
		t.Fatalf("summary fields not carried over: %+v", s)
	}
	if !strings.Contains(s.Headline, "Strong buy") {
		t.Fatalf("expected verdict phrasing in headline, got %q", s.Headline)
	}
	if !strings.Contains(s.Headline, "lstm dissents") {
		t.Fatalf("expected dissenting source in headline, got %q", s.Headline)
	}
	if len(s.Conflicts) != 1 || !strings.Contains(s.Conflicts[0], "lstm disagrees: DOWN at confidence 0.55") {
		t.Fatalf("unexpected conflict rendering: %v", s.Conflicts)
	}
	if !s.GeneratedAt.Equal(now) {
		t.Fatalf("generated_at = %v, want %v", s.GeneratedAt, now)
	}
}

func TestExplainContestedMentionsBothSides(t *testing.T) {
	d := sampleDecision()
	d.Verdict = models.VerdictBuy
	d.Contested = true

	s := Explain(d, time.Now())
	if !strings.Contains(s.Headline, "disagree") {
		t.Fatalf("contested headline should mention disagreement, got %q", s.Headline)
	}
	if !strings.Contains(s.Headline, "lstm predicts DOWN") {
		t.Fatalf("contested headline should name the dissenter, got %q", s.Headline)
	}
	if !strings.Contains(s.Headline, "BUY") {
		t.Fatalf("contested headline should state the capped verdict, got %q", s.Headline)
	}
}

func TestExplainUnanimous(t *testing.T) {
	d := sampleDecision()
	d.Conflicts = nil

	s := Explain(d, time.Now())
	if !strings.Contains(s.Headline, "unanimous") {
		t.Fatalf("expected unanimous phrasing, got %q", s.Headline)
	}
	if len(s.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %v", s.Conflicts)
	}
}

func TestExplainNoData(t *testing.T) {
	d := &models.Decision{
		InstrumentID: "ETHUSDT",
		Horizon:      "H1",
		Verdict:      models.VerdictHold,
		Reasons:      []string{resolver.NoDataReason},
	}

	s := Explain(d, time.Now())
	if !strings.Contains(s.Headline, "No usable signals") {
		t.Fatalf("expected no-data headline, got %q", s.Headline)
	}
}

func TestExplainPendingOverrideNoted(t *testing.T) {
	d := sampleDecision()
	d.PendingVerdict = models.VerdictAvoid
	d.PendingCount = 2

	s := Explain(d, time.Now())
	if !strings.Contains(s.Headline, "AVOID is pending (2 confirming cycles") {
		t.Fatalf("expected pending override note, got %q", s.Headline)
	}
}

func TestExplainDoesNotAliasReasons(t *testing.T) {
	d := sampleDecision()
	s := Explain(d, time.Now())

	s.Reasons[0] = "mutated"
	if d.Reasons[0] == "mutated" {
		t.Fatal("summary shares backing array with decision reasons")
	}
	if !reflect.DeepEqual(d, sampleDecision()) {
		t.Fatal("Explain mutated its input")
	}
}
