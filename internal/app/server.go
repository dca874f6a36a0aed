package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxloop/voxloop/internal/health"
)

// newHTTPServer builds the observation server: health and readiness probes,
// the conversation state endpoint, and the Prometheus scrape endpoint fed by
// the OTel exporter bridge.
func newHTTPServer(addr string, a *App) *http.Server {
	opts := []health.Option{health.WithState(a.stateView)}
	if a.store != nil {
		opts = append(opts, health.WithProbe("turn_store", a.store.Ping))
	}
	h := health.New(opts...)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// stateView projects the controller snapshot into the /statez JSON shape.
func (a *App) stateView() any {
	s := a.controller.State()
	view := map[string]any{
		"session":     a.sessionID,
		"phase":       s.Phase.String(),
		"listening":   s.Listening,
		"thinking":    s.Thinking,
		"speaking":    s.Speaking,
		"transcript":  s.Transcript,
		"response":    s.Response,
		"initialized": s.Initialized,
	}
	if s.Err != nil {
		view["error"] = s.Err.Error()
	}
	return view
}
