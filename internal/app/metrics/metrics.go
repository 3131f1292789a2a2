package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	requestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "marketplace",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Requests currently being served.",
	})

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "http",
		Name:      "responses_total",
		Help:      "Responses written, by route and status code.",
	}, []string{"method", "route", "code"})

	requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "marketplace",
		Subsystem: "http",
		Name:      "response_seconds",
		Help:      "Time to serve a request, by route.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})

	registrations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "accounts",
			Name:      "registrations_total",
			Help:      "Total number of registered users.",
		},
	)

	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "accounts",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		},
		[]string{"success"},
	)

	productViews = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "catalog",
			Name:      "product_views_total",
			Help:      "Total number of single product fetches.",
		},
	)

	ordersPlaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Total number of orders placed.",
		},
	)

	orderValue = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "marketplace",
			Subsystem: "orders",
			Name:      "total_amount",
			Help:      "Order totals in currency units.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1 to ~2000
		},
	)

	sessionsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marketplace",
			Subsystem: "sessions",
			Name:      "expired_removed_total",
			Help:      "Total number of expired sessions removed by the sweeper.",
		},
	)
)

func init() {
	Registry.MustRegister(
		requestsInFlight,
		requestsTotal,
		requestLatency,
		registrations,
		logins,
		productViews,
		ordersPlaced,
		orderValue,
		sessionsSwept,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler is router middleware recording per-route counts and
// latency. Routes are labelled by their mux template.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()

		sw := &statusWriter{ResponseWriter: w}
		began := time.Now()
		next.ServeHTTP(sw, r)

		route := routeTemplate(r)
		if route == "/metrics" {
			return
		}
		method := strings.ToUpper(r.Method)
		requestsTotal.WithLabelValues(method, route, strconv.Itoa(sw.code())).Inc()
		requestLatency.WithLabelValues(method, route).Observe(time.Since(began).Seconds())
	})
}

// RecordRegistration counts a new account.
func RecordRegistration() {
	registrations.Inc()
}

// RecordLogin counts a login attempt.
func RecordLogin(success bool) {
	logins.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// RecordProductView counts a single product fetch.
func RecordProductView() {
	productViews.Inc()
}

// RecordOrder counts a placed order and observes its total.
func RecordOrder(total float64) {
	ordersPlaced.Inc()
	orderValue.Observe(total)
}

// RecordSessionSweep adds removed expired sessions.
func RecordSessionSweep(removed int64) {
	if removed > 0 {
		sessionsSwept.Add(float64(removed))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
