package predictors

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/pkg/config"
	applogger "SignalFuse/pkg/logger"
)

// scoreBand is the sentiment score below which a reading counts as FLAT.
const scoreBand = 0.15

// SentimentStream consumes a sentiment feed over WebSocket and keeps the
// latest reading per instrument. Opinion never blocks on the network; it
// serves whatever the stream last delivered, and the collector's staleness
// check handles a feed that has gone quiet.
type SentimentStream struct {
	apiKey         string
	websocketURL   string
	instruments    []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool

	mu     sync.RWMutex
	latest map[string]*models.Opinion

	l *applogger.Logger
}

func NewSentimentStream(cfg *config.Config) *SentimentStream {
	s := cfg.Predictors.Sentiment
	reconnect := s.ReconnectDelay
	if reconnect <= 0 {
		reconnect = 5 * time.Second
	}
	ping := s.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	return &SentimentStream{
		apiKey:         s.APIKey,
		websocketURL:   s.WebSocketURL,
		instruments:    cfg.Engine.Instruments,
		reconnectDelay: reconnect,
		pingInterval:   ping,
		latest:         make(map[string]*models.Opinion),
	}
}

// SetLogger injects a structured logger.
func (s *SentimentStream) SetLogger(l *applogger.Logger) { s.l = l }

func (s *SentimentStream) SourceID() string { return "sentiment" }

// Opinion returns the latest sentiment reading for the instrument. Sentiment
// is horizon-agnostic; the same reading answers every horizon.
func (s *SentimentStream) Opinion(_ context.Context, instrumentID string, _ domrepo.Horizon) (*models.Opinion, bool, error) {
	s.mu.RLock()
	op, ok := s.latest[instrumentID]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	cp := *op
	return &cp, true, nil
}

// Connect establishes the WebSocket connection.
func (s *SentimentStream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.websocketURL, s.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("sentiment connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	s.info("sentiment stream connected")
	return nil
}

// Subscribe subscribes to the configured instruments.
func (s *SentimentStream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("sentiment stream not connected")
	}
	for _, inst := range s.instruments {
		msg := map[string]string{"type": "subscribe", "symbol": inst}
		if err := s.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", inst, err)
		}
	}
	return nil
}

type sentimentReading struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"` // [-1, 1]
	T      int64   `json:"t"`     // ms
}

type sentimentMessage struct {
	Type string             `json:"type"`
	Data []sentimentReading `json:"data"`
}

// Run drives the stream until ctx is cancelled, reconnecting after read
// failures with the configured delay.
func (s *SentimentStream) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Connect(ctx); err != nil {
			s.warn("sentiment connect failed", err)
			if !s.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		if err := s.Subscribe(ctx); err != nil {
			s.warn("sentiment subscribe failed", err)
			_ = s.Close()
			if !s.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		err := s.readLoop(ctx)
		_ = s.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.warn("sentiment stream dropped", err)
		if !s.sleep(ctx) {
			return ctx.Err()
		}
	}
}

func (s *SentimentStream) readLoop(ctx context.Context) error {
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go s.pingLoop(pingCtx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, b, err := s.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("sentiment read: %w", err)
		}
		var m sentimentMessage
		if err := json.Unmarshal(b, &m); err != nil {
			// ignore non-data frames
			continue
		}
		if m.Type != "sentiment" {
			continue
		}
		for _, r := range m.Data {
			s.apply(r)
		}
	}
}

func (s *SentimentStream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.conn != nil {
				_ = s.conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (s *SentimentStream) apply(r sentimentReading) {
	dir := models.DirectionFlat
	switch {
	case r.Score > scoreBand:
		dir = models.DirectionUp
	case r.Score < -scoreBand:
		dir = models.DirectionDown
	}
	conf := math.Min(math.Abs(r.Score), 1)
	observed := time.Now()
	if r.T > 0 {
		observed = time.UnixMilli(r.T)
	}

	s.mu.Lock()
	s.latest[r.Symbol] = &models.Opinion{
		Direction:  dir,
		Confidence: conf,
		ObservedAt: observed,
	}
	s.mu.Unlock()
}

func (s *SentimentStream) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.reconnectDelay):
		return true
	}
}

// Close closes the connection.
func (s *SentimentStream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates stream status.
func (s *SentimentStream) IsConnected() bool { return s.connected }

func (s *SentimentStream) info(msg string) {
	if s.l != nil {
		s.l.Info(msg)
	}
}

func (s *SentimentStream) warn(msg string, err error) {
	if s.l != nil {
		s.l.Warn(msg, applogger.Error(err))
	}
}
