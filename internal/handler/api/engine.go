package api

import (
	"encoding/json"
	"time"

	models "SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	icache "SignalFuse/internal/service/cache"
	"SignalFuse/internal/service/metrics"
	"SignalFuse/internal/service/ratelimit"
	"SignalFuse/internal/services/explain"
	"SignalFuse/internal/services/trust"
	"SignalFuse/internal/usecase"
	xhttp "SignalFuse/pkg/http"
	applogger "SignalFuse/pkg/logger"
	"SignalFuse/pkg/queue"

	"github.com/labstack/echo/v4"
)

// EngineHandler exposes the decision engine over HTTP.
type EngineHandler struct {
	store  domrepo.DecisionStore
	trust  *trust.EMATrustModel
	status *usecase.StatusReporter
	runner *usecase.CycleRunner
	jobs   queue.QueueService

	cache icache.BytesCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewEngineHandler(
	store domrepo.DecisionStore,
	trustModel *trust.EMATrustModel,
	status *usecase.StatusReporter,
	runner *usecase.CycleRunner,
) *EngineHandler {
	metrics.Register()
	return &EngineHandler{
		store:  store,
		trust:  trustModel,
		status: status,
		runner: runner,
		rl:     ratelimit.New(),
	}
}

// SetJobQueue injects the async trigger queue for forced cycles.
func (h *EngineHandler) SetJobQueue(q queue.QueueService) { h.jobs = q }

// SetCache injects a response cache for the read endpoints.
func (h *EngineHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *EngineHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *EngineHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/decision", h.Decision)
	g.GET("/decisions", h.Decisions)
	g.GET("/explain", h.Explain)
	g.GET("/weights", h.Weights)
	g.GET("/accuracy", h.Accuracy)
	g.GET("/status", h.Status)
	g.POST("/cycle", h.RunCycle)
}

func (h *EngineHandler) Decision(c echo.Context) error {
	start := time.Now()
	defer h.observe("decision", start)

	req := &models.DecisionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hz := domrepo.NormalizeHorizon(req.Horizon)

	d, err := h.store.Get(c.Request().Context(), req.Instrument, hz)
	if err != nil {
		metrics.APIErrors.WithLabelValues("decision").Inc()
		h.logError("decision load error", err)
		return xhttp.AppErrorResponse(c, err)
	}
	if d == nil {
		return xhttp.NotFoundResponse(c, "no decision for this instrument and horizon")
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, d)
}

func (h *EngineHandler) Decisions(c echo.Context) error {
	start := time.Now()
	defer h.observe("decisions", start)

	req := &models.DecisionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	all, err := h.store.AllActive(c.Request().Context())
	if err != nil {
		metrics.APIErrors.WithLabelValues("decisions").Inc()
		h.logError("decisions load error", err)
		return xhttp.AppErrorResponse(c, err)
	}

	out := make([]*models.Decision, 0, len(all))
	for _, d := range all {
		if req.Horizon != "" && d.Horizon != req.Horizon {
			continue
		}
		out = append(out, d)
		if len(out) >= req.Limit {
			break
		}
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

func (h *EngineHandler) Explain(c echo.Context) error {
	start := time.Now()
	defer h.observe("explain", start)

	req := &models.ExplainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hz := domrepo.NormalizeHorizon(req.Horizon)

	if !h.rl.Allow(c.RealIP()+":explain", 5, 2) {
		h.logWarn("explain rate_limited", applogger.String("remote", c.RealIP()))
		return echo.NewHTTPError(429, "rate limited")
	}

	cacheKey := "explain:" + req.Instrument + ":" + string(hz)
	if b, ok := h.cached(cacheKey); ok {
		return xhttp.SuccessResponse(c, json.RawMessage(b))
	}

	d, err := h.store.Get(c.Request().Context(), req.Instrument, hz)
	if err != nil {
		metrics.APIErrors.WithLabelValues("explain").Inc()
		h.logError("explain load error", err)
		return xhttp.AppErrorResponse(c, err)
	}
	if d == nil {
		return xhttp.NotFoundResponse(c, "no decision for this instrument and horizon")
	}

	summary := explain.Explain(d, time.Now())
	h.storeCached(cacheKey, summary, 30*time.Second)
	return xhttp.SuccessResponse(c, summary)
}

func (h *EngineHandler) Weights(c echo.Context) error {
	start := time.Now()
	defer h.observe("weights", start)

	req := &models.WeightsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hz := domrepo.NormalizeHorizon(req.Horizon)

	w, err := h.trust.WeightsFor(c.Request().Context(), req.Instrument, hz)
	if err != nil {
		metrics.APIErrors.WithLabelValues("weights").Inc()
		h.logError("weights error", err)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"instrument_id": req.Instrument,
		"horizon":       string(hz),
		"weights":       w,
	})
}

func (h *EngineHandler) Accuracy(c echo.Context) error {
	start := time.Now()
	defer h.observe("accuracy", start)

	req := &models.AccuracyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hz := domrepo.NormalizeHorizon(req.Horizon)

	rows, err := h.trust.Accuracies(c.Request().Context(), req.Instrument, hz)
	if err != nil {
		metrics.APIErrors.WithLabelValues("accuracy").Inc()
		h.logError("accuracy error", err)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EngineHandler) Status(c echo.Context) error {
	start := time.Now()
	defer h.observe("status", start)

	st, err := h.status.Status(c.Request().Context())
	if err != nil {
		metrics.APIErrors.WithLabelValues("status").Inc()
		h.logError("status error", err)
		return xhttp.AppErrorResponse(c, err)
	}
	if last := h.runner.LastReport(); last != nil {
		return xhttp.SuccessResponse(c, map[string]interface{}{
			"engine":     st,
			"last_cycle": last,
		})
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"engine": st})
}

// RunCycle triggers a full evaluation pass. With a job queue configured the
// trigger is asynchronous; otherwise the cycle runs inline.
func (h *EngineHandler) RunCycle(c echo.Context) error {
	start := time.Now()
	defer h.observe("cycle", start)

	req := &models.RunCycleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.rl.Allow(c.RealIP()+":cycle", 2, 0.2) {
		h.logWarn("cycle rate_limited", applogger.String("remote", c.RealIP()))
		return echo.NewHTTPError(429, "rate limited")
	}

	if h.jobs != nil {
		if err := h.jobs.PublishMessage(c.Request().Context(), usecase.MsgTypeRunCycle, req); err != nil {
			metrics.APIErrors.WithLabelValues("cycle").Inc()
			h.logError("cycle enqueue error", err)
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.DataResponse(c, 202, map[string]string{"status": "scheduled"})
	}

	report, err := h.runner.Run(c.Request().Context())
	if err != nil {
		metrics.APIErrors.WithLabelValues("cycle").Inc()
		h.logError("cycle run error", err)
		return xhttp.AppErrorResponse(c, err)
	}
	if report == nil {
		return xhttp.DataResponse(c, 202, map[string]string{"status": "already running"})
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *EngineHandler) observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (h *EngineHandler) cached(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		h.logWarn("cache get error", applogger.Error(err))
		return nil, false
	}
	return b, ok
}

func (h *EngineHandler) storeCached(key string, v interface{}, ttl time.Duration) {
	if h.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := h.cache.SetBytes(key, b, ttl); err != nil {
		h.logWarn("cache set error", applogger.Error(err))
	}
}

func (h *EngineHandler) logError(msg string, err error) {
	if h.l != nil {
		h.l.Error(msg, applogger.Error(err))
	}
}

func (h *EngineHandler) logWarn(msg string, fields ...applogger.Field) {
	if h.l != nil {
		h.l.Warn(msg, fields...)
	}
}
