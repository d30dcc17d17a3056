// Package observability owns the prometheus collectors exposed on /metrics.
package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fittrack"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	enrollments         prometheus.Counter
	progressMarks       *prometheus.CounterVec
	completions         prometheus.Counter
	generatedBatches    *prometheus.CounterVec
	completionPublishes *prometheus.CounterVec
}

// New builds a registry holding the service collectors plus the go and process collectors.
func New() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route template, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		enrollments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "challenges",
			Name:      "enrollments_total",
			Help:      "Challenges joined.",
		}),
		progressMarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "challenges",
			Name:      "progress_marks_total",
			Help:      "Progress mark attempts by outcome.",
		}, []string{"outcome"}),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "challenges",
			Name:      "completions_total",
			Help:      "Enrollments that reached 100 percent.",
		}),
		generatedBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "challenges",
			Name:      "suggestion_batches_total",
			Help:      "Suggested challenge batches by source.",
		}, []string{"source"}),
		completionPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "completion_publish_total",
			Help:      "Completion event publish attempts by result.",
		}, []string{"result"}),
	}

	metrics.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.httpRequests,
		metrics.httpDuration,
		metrics.enrollments,
		metrics.progressMarks,
		metrics.completions,
		metrics.generatedBatches,
		metrics.completionPublishes,
	)
	return metrics
}

func (metrics *Metrics) Registry() *prometheus.Registry {
	return metrics.registry
}

func (metrics *Metrics) RecordJoin() {
	metrics.enrollments.Inc()
}

func (metrics *Metrics) RecordMark(outcome string) {
	metrics.progressMarks.WithLabelValues(outcome).Inc()
}

func (metrics *Metrics) RecordCompletion() {
	metrics.completions.Inc()
}

func (metrics *Metrics) RecordSuggestions(source string) {
	metrics.generatedBatches.WithLabelValues(source).Inc()
}

func (metrics *Metrics) RecordCompletionPublish(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.completionPublishes.WithLabelValues(result).Inc()
}

// Middleware records request counts and latency labelled by the matched route template,
// so ids in paths do not explode label cardinality.
func (metrics *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := "unmatched"
		if matched := c.Route(); matched != nil && matched.Path != "" && matched.Path != "/" {
			route = matched.Path
		}
		metrics.httpRequests.WithLabelValues(route, c.Method(), strconv.Itoa(status)).Inc()
		metrics.httpDuration.WithLabelValues(route, c.Method()).Observe(time.Since(started).Seconds())
		return err
	}
}

func (metrics *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{}))
}
