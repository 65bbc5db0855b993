package predictors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	svccache "SignalFuse/internal/service/cache"
	xhttp "SignalFuse/pkg/http"
)

// httpBase centralizes client construction and JSON POST handling for the
// HTTP predictor clients. Responses are cached briefly so that overlapping
// cycles do not hammer the model servers.
type httpBase struct {
	baseURL string
	client  *xhttp.Client
	cache   *svccache.TTLCache
	ttl     time.Duration
}

func newHTTPBase(baseURL string, timeout, cacheTTL time.Duration) *httpBase {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	b := &httpBase{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		ttl:     cacheTTL,
	}
	if cacheTTL > 0 {
		b.cache = svccache.NewTTLCache()
	}
	return b
}

// opinionRequest is the wire request shared by all HTTP predictors.
type opinionRequest struct {
	Instrument string `json:"instrument"`
	Horizon    string `json:"horizon"`
}

// opinionResponse is the wire response shared by all HTTP predictors.
// An empty direction means the model declines to answer for this key.
type opinionResponse struct {
	Direction  string    `json:"direction"`
	Confidence float64   `json:"confidence"`
	AsOf       time.Time `json:"as_of"`
}

func (b *httpBase) postJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("predictor http client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

func (b *httpBase) postJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return b.postJSON(ctx, path, payload, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.postJSON(ctx, path, payload, dest)
		if err == nil {
			return nil
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// fetchOpinion posts an opinion request to path and converts the response,
// consulting the short-lived cache first.
func (b *httpBase) fetchOpinion(ctx context.Context, path, instrumentID string, horizon domrepo.Horizon) (*models.Opinion, bool, error) {
	key := path + ":" + instrumentID + ":" + string(horizon)
	if b.cache != nil {
		if v, ok := b.cache.Get(key); ok {
			if op, ok2 := v.(*models.Opinion); ok2 {
				return op, op != nil, nil
			}
			// cached decline
			return nil, false, nil
		}
	}

	var resp opinionResponse
	err := b.postJSONWithRetry(ctx, path, opinionRequest{Instrument: instrumentID, Horizon: string(horizon)}, &resp, 3)
	if err != nil {
		return nil, false, err
	}
	if resp.Direction == "" {
		if b.cache != nil {
			b.cache.Set(key, (*models.Opinion)(nil), b.ttl)
		}
		return nil, false, nil
	}

	observed := resp.AsOf
	if observed.IsZero() {
		observed = time.Now()
	}
	op := &models.Opinion{
		Direction:  models.Direction(resp.Direction),
		Confidence: resp.Confidence,
		ObservedAt: observed,
	}
	if b.cache != nil {
		b.cache.Set(key, op, b.ttl)
	}
	return op, true, nil
}
