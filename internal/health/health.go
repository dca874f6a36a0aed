// Package health serves the HTTP observation surface of the voxloop service.
//
// Three endpoints are exposed:
//
//   - /healthz — liveness probe; always 200 while the process serves HTTP.
//   - /readyz  — readiness probe; 200 only when every registered probe passes.
//   - /statez  — the current conversation state as JSON, for dashboards and
//     hands-free clients that poll instead of subscribing.
//
// Probe results carry per-probe latency so a slow dependency is visible
// before it becomes a failing one.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds a single readiness probe.
const probeTimeout = 5 * time.Second

// Probe is a named readiness check. Run returns nil when the dependency is
// usable and must respect context cancellation.
type Probe struct {
	Name string
	Run  func(ctx context.Context) error
}

// Handler serves the health endpoints. The probe list and state source are
// fixed at construction; the handler is safe for concurrent use.
type Handler struct {
	probes  []Probe
	state   func() any
	started time.Time
}

// Option configures a [Handler].
type Option func(*Handler)

// WithProbe registers a readiness probe. Probes run sequentially in
// registration order on every /readyz request.
func WithProbe(name string, run func(ctx context.Context) error) Option {
	return func(h *Handler) { h.probes = append(h.probes, Probe{Name: name, Run: run}) }
}

// WithState supplies the value served at /statez. When absent the endpoint
// returns 404.
func WithState(fn func() any) Option {
	return func(h *Handler) { h.state = fn }
}

// New creates a Handler.
func New(opts ...Option) *Handler {
	h := &Handler{started: time.Now()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the health routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /readyz", h.readyz)
	mux.HandleFunc("GET /statez", h.statez)
}

// probeResult is the JSON form of one readiness probe outcome.
type probeResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// healthz reports liveness and process uptime.
func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// readyz runs every registered probe and reports 503 when any fails.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]probeResult, len(h.probes))
	status := http.StatusOK

	for _, p := range h.probes {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		start := time.Now()
		err := p.Run(ctx)
		cancel()

		res := probeResult{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
		if err != nil {
			res.Status = "fail"
			res.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
		results[p.Name] = res
	}

	body := map[string]any{"status": "ok", "probes": results}
	if status != http.StatusOK {
		body["status"] = "fail"
	}
	writeJSON(w, status, body)
}

// statez serves the conversation state snapshot.
func (h *Handler) statez(w http.ResponseWriter, r *http.Request) {
	if h.state == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
