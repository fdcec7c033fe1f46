package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusProvider registers and serves metrics through a
// prometheus.Registry, lazily creating a CounterVec/HistogramVec/
// GaugeVec per distinct metric name on first use.
type PrometheusProvider struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusProvider returns a PrometheusProvider backed by registry.
// Pass prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer's registry for process-wide metrics.
func NewPrometheusProvider(registry *prometheus.Registry) *PrometheusProvider {
	return &PrometheusProvider{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}

func (p *PrometheusProvider) IncCounter(name string, labels map[string]string, delta float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelNames(labels))
		p.registry.MustRegister(c)
		p.counters[name] = c
	}
	c.With(prometheus.Labels(labels)).Add(delta)
}

func (p *PrometheusProvider) ObserveHistogram(name string, labels map[string]string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.histograms[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name}, labelNames(labels))
		p.registry.MustRegister(h)
		p.histograms[name] = h
	}
	h.With(prometheus.Labels(labels)).Observe(value)
}

func (p *PrometheusProvider) SetGauge(name string, labels map[string]string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.gauges[name]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, labelNames(labels))
		p.registry.MustRegister(g)
		p.gauges[name] = g
	}
	g.With(prometheus.Labels(labels)).Set(value)
}

// Registry exposes the underlying registry so an HTTP adapter can serve
// it via promhttp.
func (p *PrometheusProvider) Registry() *prometheus.Registry { return p.registry }
