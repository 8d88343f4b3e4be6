// Package metrics exposes prometheus collectors for the engine, the event
// bus, the scheduler and the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yogaii"

// Collectors groups every metric the service reports.
type Collectors struct {
	registry *prometheus.Registry

	activitiesTotal   *prometheus.CounterVec
	xpAwardedTotal    prometheus.Counter
	levelUpsTotal     *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
	engineFailures    *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	eventsPublished *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	handlerFailures *prometheus.CounterVec
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	authRejections  *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry
// together with the Go and process collectors.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		activitiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activities_recorded_total",
			Help:      "Activities recorded, by session quality.",
		}, []string{"quality"}),
		xpAwardedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xp_awarded_total",
			Help:      "Total XP awarded.",
		}),
		levelUpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Level-up events, by new level.",
		}, []string{"level"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streak_transitions_total",
			Help:      "Streak transitions applied to profiles.",
		}, []string{"transition"}),
		engineFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_failures_total",
			Help:      "Failed record-activity calls, by failing step.",
		}, []string{"step"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events published on the bus.",
		}, []string{"event_type"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_handler_duration_seconds",
			Help:      "Duration of event handler executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_handler_failures_total",
			Help:      "Event handler executions that returned an error.",
		}, []string{"event_type"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs, by result.",
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"path", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of unauthorized requests",
		}, []string{"reason"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.activitiesTotal, c.xpAwardedTotal, c.levelUpsTotal, c.transitionsTotal,
		c.engineFailures, c.operationDuration,
		c.eventsPublished, c.handlerDuration, c.handlerFailures,
		c.jobRuns, c.jobDuration,
		c.httpRequests, c.httpDuration, c.authRejections,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collectors) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Engine metrics.

func (c *Collectors) ActivityRecorded(quality string, xp int) {
	c.activitiesTotal.WithLabelValues(quality).Inc()
	c.xpAwardedTotal.Add(float64(xp))
}

func (c *Collectors) LevelUp(newLevel int) {
	c.levelUpsTotal.WithLabelValues(strconv.Itoa(newLevel)).Inc()
}

func (c *Collectors) StreakTransition(transition string) {
	c.transitionsTotal.WithLabelValues(transition).Inc()
}

func (c *Collectors) EngineFailure(step string) {
	c.engineFailures.WithLabelValues(step).Inc()
}

func (c *Collectors) ObserveLatency(operation string, d time.Duration) {
	c.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Event bus metrics.

func (c *Collectors) EventPublished(eventType string) {
	c.eventsPublished.WithLabelValues(eventType).Inc()
}

func (c *Collectors) HandlerExecuted(eventType string, d time.Duration, err error) {
	c.handlerDuration.WithLabelValues(eventType).Observe(d.Seconds())
	if err != nil {
		c.handlerFailures.WithLabelValues(eventType).Inc()
	}
}

// JobRun records one scheduler run.
func (c *Collectors) JobRun(job string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.jobRuns.WithLabelValues(job, result).Inc()
	c.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// ObserveHTTP records one served request. path must be the route pattern,
// not the raw URL, to keep label cardinality bounded.
func (c *Collectors) ObserveHTTP(path, method string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(path, method).Observe(d.Seconds())

	switch status {
	case http.StatusUnauthorized:
		c.authRejections.WithLabelValues("401_unauthorized").Inc()
	case http.StatusForbidden:
		c.authRejections.WithLabelValues("403_forbidden").Inc()
	}
}
