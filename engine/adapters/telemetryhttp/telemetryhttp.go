// Package telemetryhttp exposes the service's operator-facing HTTP
// surface: Prometheus scrape endpoint, a liveness probe, and a JSON
// dump of the introspection tree for local debugging.
package telemetryhttp

import (
	"encoding/json"
	"net/http"

	"github.com/lattice-gfx/frameipc/engine/introspection"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker reports whether the service considers itself live:
// segments mapped and introspection finalized.
type HealthChecker interface {
	Healthy() (bool, string)
}

// IntrospectionSource supplies the current introspection tree for the
// debug endpoint.
type IntrospectionSource interface {
	IntrospectionRoot() introspection.Root
}

// NewMux builds the operator HTTP surface. registry may be nil, in
// which case /metrics serves an empty exposition.
func NewMux(registry *prometheus.Registry, health HealthChecker, introSource IntrospectionSource) *http.ServeMux {
	mux := http.NewServeMux()

	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		ok, reason := health.Healthy()
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(reason))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/debug/introspection", func(w http.ResponseWriter, r *http.Request) {
		if introSource == nil {
			http.Error(w, "introspection source not configured", http.StatusNotImplemented)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(introSource.IntrospectionRoot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	return mux
}
