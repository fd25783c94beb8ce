// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the services.
type Recorder interface {
	RecordLogin(method string)
	RecordAdCreated(isPaid bool)
	RecordCheckoutSession()
	RecordAdUpgrade(source string)
	RecordWebhookFailure()
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	logins         *prometheus.CounterVec
	adsCreated     *prometheus.CounterVec
	checkouts      prometheus.Counter
	adUpgrades     *prometheus.CounterVec
	webhookFailure prometheus.Counter
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classifieds_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "classifieds_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classifieds_auth_logins_total",
			Help: "Sessions issued by login method.",
		}, []string{"method"}),
		adsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classifieds_ads_created_total",
			Help: "Ads created by tier.",
		}, []string{"tier"}),
		checkouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "classifieds_checkout_sessions_total",
			Help: "Premium ad checkout sessions opened.",
		}),
		adUpgrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classifieds_ad_upgrades_total",
			Help: "Ads upgraded to premium by confirmation source.",
		}, []string{"source"}),
		webhookFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "classifieds_webhook_failures_total",
			Help: "Payment webhooks rejected or failed.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.logins,
		c.adsCreated,
		c.checkouts,
		c.adUpgrades,
		c.webhookFailure,
	)

	return c
}

func (c *Collector) RecordLogin(method string) {
	c.logins.WithLabelValues(method).Inc()
}

func (c *Collector) RecordAdCreated(isPaid bool) {
	tier := "free"
	if isPaid {
		tier = "paid"
	}
	c.adsCreated.WithLabelValues(tier).Inc()
}

func (c *Collector) RecordCheckoutSession() {
	c.checkouts.Inc()
}

func (c *Collector) RecordAdUpgrade(source string) {
	c.adUpgrades.WithLabelValues(source).Inc()
}

func (c *Collector) RecordWebhookFailure() {
	c.webhookFailure.Inc()
}

// Middleware records request count and latency per matched route.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			// Errors are rendered here so the recorded status is the one sent.
			if err := next(ctx); err != nil {
				ctx.Error(err)
			}

			status := ctx.Response().Status
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method

			c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordLogin(string)     {}
func (Nop) RecordAdCreated(bool)   {}
func (Nop) RecordCheckoutSession() {}
func (Nop) RecordAdUpgrade(string) {}
func (Nop) RecordWebhookFailure()  {}
