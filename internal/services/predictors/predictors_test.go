package predictors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/pkg/config"
)

func technicalConfig(url string, cacheTTL time.Duration) *config.Config {
	cfg := &config.Config{}
	cfg.Predictors.Timeout = 2 * time.Second
	cfg.Predictors.CacheTTL = cacheTTL
	cfg.Predictors.Technical.URL = url
	return cfg
}

func TestTechnicalOpinion(t *testing.T) {
	var gotReq opinionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(opinionResponse{
			Direction:  "UP",
			Confidence: 0.82,
			AsOf:       time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC),
		})
	}))
	defer srv.Close()

	p := NewTechnical(technicalConfig(srv.URL, 0))
	if p.SourceID() != "technical" {
		t.Fatalf("source id = %s", p.SourceID())
	}

	op, ok, err := p.Opinion(context.Background(), "BTCUSDT", domrepo.D1)
	if err != nil || !ok {
		t.Fatalf("Opinion: ok=%v err=%v", ok, err)
	}
	if op.Direction != models.DirectionUp || op.Confidence != 0.82 {
		t.Fatalf("unexpected opinion: %+v", op)
	}
	if gotReq.Instrument != "BTCUSDT" || gotReq.Horizon != "D1" {
		t.Fatalf("unexpected request: %+v", gotReq)
	}
}

func TestTechnicalDecline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(opinionResponse{})
	}))
	defer srv.Close()

	p := NewTechnical(technicalConfig(srv.URL, 0))
	op, ok, err := p.Opinion(context.Background(), "BTCUSDT", domrepo.D1)
	if err != nil {
		t.Fatalf("Opinion: %v", err)
	}
	if ok || op != nil {
		t.Fatalf("empty direction should decline, got ok=%v op=%+v", ok, op)
	}
}

func TestFetchOpinionCachesResponses(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&hits, 1)
		_ = json.NewEncoder(w).Encode(opinionResponse{Direction: "DOWN", Confidence: 0.6, AsOf: time.Now()})
	}))
	defer srv.Close()

	p := NewTechnical(technicalConfig(srv.URL, time.Minute))
	for i := 0; i < 3; i++ {
		if _, ok, err := p.Opinion(context.Background(), "ETHUSDT", domrepo.H1); err != nil || !ok {
			t.Fatalf("Opinion %d: ok=%v err=%v", i, ok, err)
		}
	}
	if atomic.LoadInt64(&hits) != 1 {
		t.Fatalf("expected one upstream hit, got %d", hits)
	}
}

func TestFundamentalDeclinesHourly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("hourly horizon must not reach the network")
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Predictors.Timeout = time.Second
	cfg.Predictors.Fundamental.URL = srv.URL

	p := NewFundamental(cfg)
	_, ok, err := p.Opinion(context.Background(), "BTCUSDT", domrepo.H1)
	if err != nil || ok {
		t.Fatalf("expected silent decline, got ok=%v err=%v", ok, err)
	}
}

func TestNewModelsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Predictors.Timeout = time.Second
	cfg.Predictors.Models = []config.PredictorModel{
		{SourceID: "lstm", URL: "http://lstm:8000"},
		{SourceID: "xgboost", URL: "http://xgb:8000"},
	}

	ms := NewModels(cfg)
	if len(ms) != 2 {
		t.Fatalf("got %d models, want 2", len(ms))
	}
	if ms[0].SourceID() != "lstm" || ms[1].SourceID() != "xgboost" {
		t.Fatalf("unexpected source ids: %s, %s", ms[0].SourceID(), ms[1].SourceID())
	}
}

func TestSentimentStreamOpinion(t *testing.T) {
	cfg := &config.Config{}
	cfg.Engine.Instruments = []string{"BTCUSDT"}
	s := NewSentimentStream(cfg)

	if _, ok, err := s.Opinion(context.Background(), "BTCUSDT", domrepo.D1); ok || err != nil {
		t.Fatalf("expected no opinion before any reading, got ok=%v err=%v", ok, err)
	}

	base := time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC)
	s.apply(sentimentReading{Symbol: "BTCUSDT", Score: 0.42, T: base.UnixMilli()})

	op, ok, err := s.Opinion(context.Background(), "BTCUSDT", domrepo.D30)
	if err != nil || !ok {
		t.Fatalf("Opinion: ok=%v err=%v", ok, err)
	}
	if op.Direction != models.DirectionUp || op.Confidence != 0.42 {
		t.Fatalf("unexpected opinion: %+v", op)
	}
	if !op.ObservedAt.Equal(base) {
		t.Fatalf("observed_at = %v, want %v", op.ObservedAt, base)
	}

	// returned copy must not alias internal state
	op.Confidence = 0
	if again, _, _ := s.Opinion(context.Background(), "BTCUSDT", domrepo.D1); again.Confidence != 0.42 {
		t.Fatal("Opinion returned aliased state")
	}
}

func TestSentimentBanding(t *testing.T) {
	cfg := &config.Config{}
	s := NewSentimentStream(cfg)

	cases := []struct {
		score float64
		dir   models.Direction
	}{
		{0.5, models.DirectionUp},
		{-0.5, models.DirectionDown},
		{0.05, models.DirectionFlat},
		{-0.1, models.DirectionFlat},
	}
	for _, c := range cases {
		s.apply(sentimentReading{Symbol: "X", Score: c.score, T: time.Now().UnixMilli()})
		op, _, _ := s.Opinion(context.Background(), "X", domrepo.D1)
		if op.Direction != c.dir {
			t.Fatalf("score %v mapped to %s, want %s", c.score, op.Direction, c.dir)
		}
	}
}
