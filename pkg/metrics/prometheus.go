package metrics

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "logwal"

// Prometheus is a Collector that lazily registers one vector per metric
// name. The label keys seen on first use fix the vector's label set; later
// observations with a different label set are dropped.
type Prometheus struct {
	reg *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

func NewPrometheus() *Prometheus {
	return &Prometheus{
		reg:        prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.reg
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *Prometheus) IncCounter(name string, labels map[string]string, delta float64) {
	p.mu.Lock()
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      name,
		}, labelNames(labels))
		p.register(name, vec)
		p.counters[name] = vec
	}
	p.mu.Unlock()

	c, err := vec.GetMetricWith(labels)
	if err != nil {
		slog.Debug("metrics: counter label mismatch", "name", name, "error", err)
		return
	}
	c.Add(delta)
}

func (p *Prometheus) SetGauge(name string, labels map[string]string, value float64) {
	p.mu.Lock()
	vec, ok := p.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      name,
		}, labelNames(labels))
		p.register(name, vec)
		p.gauges[name] = vec
	}
	p.mu.Unlock()

	g, err := vec.GetMetricWith(labels)
	if err != nil {
		slog.Debug("metrics: gauge label mismatch", "name", name, "error", err)
		return
	}
	g.Set(value)
}

func (p *Prometheus) ObserveHistogram(name string, labels map[string]string, value float64) {
	p.mu.Lock()
	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      name,
			Buckets:   prometheus.DefBuckets,
		}, labelNames(labels))
		p.register(name, vec)
		p.histograms[name] = vec
	}
	p.mu.Unlock()

	h, err := vec.GetMetricWith(labels)
	if err != nil {
		slog.Debug("metrics: histogram label mismatch", "name", name, "error", err)
		return
	}
	h.Observe(value)
}

func (p *Prometheus) register(name string, c prometheus.Collector) {
	if err := p.reg.Register(c); err != nil {
		slog.Warn("metrics: register failed", "name", name, "error", err)
	}
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
