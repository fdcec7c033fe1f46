package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelProvider emits metrics through an OpenTelemetry metric.Meter,
// lazily creating an instrument per distinct metric name on first use.
type OTelProvider struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64Gauge
}

// NewOTelProvider returns an OTelProvider backed by meter (typically
// obtained from an otel.MeterProvider configured by the caller).
func NewOTelProvider(meter metric.Meter) *OTelProvider {
	return &OTelProvider{
		meter:      meter,
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

func toAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

func (p *OTelProvider) IncCounter(name string, labels map[string]string, delta float64) {
	p.mu.Lock()
	c, ok := p.counters[name]
	if !ok {
		c, _ = p.meter.Float64Counter(name)
		p.counters[name] = c
	}
	p.mu.Unlock()
	c.Add(context.Background(), delta, metric.WithAttributes(toAttributes(labels)...))
}

func (p *OTelProvider) ObserveHistogram(name string, labels map[string]string, value float64) {
	p.mu.Lock()
	h, ok := p.histograms[name]
	if !ok {
		h, _ = p.meter.Float64Histogram(name)
		p.histograms[name] = h
	}
	p.mu.Unlock()
	h.Record(context.Background(), value, metric.WithAttributes(toAttributes(labels)...))
}

func (p *OTelProvider) SetGauge(name string, labels map[string]string, value float64) {
	p.mu.Lock()
	g, ok := p.gauges[name]
	if !ok {
		g, _ = p.meter.Float64Gauge(name)
		p.gauges[name] = g
	}
	p.mu.Unlock()
	g.Record(context.Background(), value, metric.WithAttributes(toAttributes(labels)...))
}
