package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trungse123/review-backend/pkg/httputil"
)

// Checker probes one dependency.
type Checker func(ctx context.Context) error

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
	StatusDraining Status = "draining"
)

type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status    Status `json:"status"`
	Critical  bool   `json:"critical"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

var checkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "health_check_duration_seconds",
	Help:    "Duration of readiness dependency checks.",
	Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5},
}, []string{"check", "status"})

type probe struct {
	name     string
	check    Checker
	critical bool
}

// Handler serves liveness and readiness. A failing critical check makes the
// service not ready; a failing non-critical one marks it degraded.
type Handler struct {
	mu       sync.RWMutex
	probes   map[string]probe
	timeout  time.Duration
	draining atomic.Bool
	now      func() time.Time
}

func NewHandler() *Handler {
	return &Handler{
		probes:  make(map[string]probe),
		timeout: 3 * time.Second,
		now:     time.Now,
	}
}

// RegisterCritical adds a check whose failure fails readiness.
func (h *Handler) RegisterCritical(name string, check Checker) {
	h.register(probe{name: name, check: check, critical: true})
}

// RegisterNonCritical adds a check whose failure only degrades readiness.
func (h *Handler) RegisterNonCritical(name string, check Checker) {
	h.register(probe{name: name, check: check})
}

func (h *Handler) register(p probe) {
	h.mu.Lock()
	h.probes[p.name] = p
	h.mu.Unlock()
}

// SetDraining makes readiness fail from now on, so load balancers stop
// routing before the server shuts down.
func (h *Handler) SetDraining() {
	h.draining.Store(true)
}

func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, Response{Status: StatusUp, Timestamp: h.now().UTC()})
	}
}

func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.draining.Load() {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, Response{Status: StatusDraining, Timestamp: h.now().UTC()})
			return
		}

		checks := h.Check(r.Context())
		overall := Aggregate(checks)

		code := http.StatusOK
		if overall == StatusDown {
			code = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, Response{Status: overall, Timestamp: h.now().UTC(), Checks: checks})
	}
}

// Check runs every registered probe concurrently under the handler timeout.
func (h *Handler) Check(ctx context.Context) map[string]CheckResult {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mu.RLock()
	probes := make([]probe, 0, len(h.probes))
	for _, p := range h.probes {
		probes = append(probes, p)
	}
	h.mu.RUnlock()
	sort.Slice(probes, func(i, j int) bool { return probes[i].name < probes[j].name })

	results := make([]CheckResult, len(probes))
	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = run(ctx, p)
		}()
	}
	wg.Wait()

	out := make(map[string]CheckResult, len(probes))
	for i, p := range probes {
		out[p.name] = results[i]
	}
	return out
}

func run(ctx context.Context, p probe) CheckResult {
	start := time.Now()
	err := p.check(ctx)
	elapsed := time.Since(start)

	res := CheckResult{Status: StatusUp, Critical: p.critical, LatencyMs: elapsed.Milliseconds()}
	if err != nil {
		res.Status = StatusDown
		res.Error = err.Error()
	}
	checkDuration.WithLabelValues(p.name, string(res.Status)).Observe(elapsed.Seconds())
	return res
}

// Aggregate folds check results into the overall readiness status.
func Aggregate(checks map[string]CheckResult) Status {
	overall := StatusUp
	for _, res := range checks {
		if res.Status != StatusDown {
			continue
		}
		if res.Critical {
			return StatusDown
		}
		overall = StatusDegraded
	}
	return overall
}
