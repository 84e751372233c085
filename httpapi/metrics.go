package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spluca/ippool"
)

const metricsNamespace = "ippool"

// poolCollector reads the pool's Stats on every scrape so the gauges can
// never drift from the allocator state.
type poolCollector struct {
	pool ippool.IPv4Allocator

	total     *prometheus.Desc
	allocated *prometheus.Desc
	available *prometheus.Desc
}

func newPoolCollector(pool ippool.IPv4Allocator) *poolCollector {
	labels := []string{"network"}
	return &poolCollector{
		pool: pool,
		total: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "addresses", "total"),
			"Number of addresses in the allocatable range.",
			labels, nil),
		allocated: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "addresses", "allocated"),
			"Number of addresses currently held by a VM.",
			labels, nil),
		available: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "addresses", "available"),
			"Number of free addresses.",
			labels, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.allocated
	ch <- c.available
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(st.Total), st.Network)
	ch <- prometheus.MustNewConstMetric(c.allocated, prometheus.GaugeValue, float64(st.Allocated), st.Network)
	ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, float64(st.Available), st.Network)
}

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(pool ippool.IPv4Allocator) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by route, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds by route and method.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}

	m.registry.MustRegister(
		newPoolCollector(pool),
		m.requests,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}

// instrument is installed as router middleware so the matched route
// template is known when the request is counted.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		labels := prometheus.Labels{"route": route}
		h := promhttp.InstrumentHandlerDuration(m.duration.MustCurryWith(labels),
			promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(labels), next))
		h.ServeHTTP(w, r)
	})
}
