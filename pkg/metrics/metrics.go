package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postscope_api_requests_total",
		Help: "Upstream API requests by endpoint and status code",
	}, []string{"endpoint", "status"})
	APIRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postscope_api_request_duration_seconds",
		Help:    "Upstream API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postscope_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	RateLimitWaits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postscope_ratelimit_waits_total",
		Help: "Times a request had to wait for the local rate limiter",
	})
	RateLimitWaitSeconds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postscope_ratelimit_wait_seconds_total",
		Help: "Seconds spent waiting on the local rate limiter",
	})
	JobsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "postscope_jobs_finished_total",
		Help: "Jobs that reached a terminal state",
	}, []string{"state"})
	JobsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "postscope_jobs_running",
		Help: "Jobs currently running",
	})
	JobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "postscope_job_duration_seconds",
		Help:    "Wall time of a job from start to terminal state",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	PostsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postscope_posts_fetched_total",
		Help: "Posts accepted into job results",
	})
)

func init() {
	prometheus.MustRegister(
		APIRequests, APIRequestDuration, APIRetries,
		RateLimitWaits, RateLimitWaitSeconds,
		JobsFinished, JobsActive, JobDuration, PostsFetched,
	)
}

// ObserveAPIRequest records one upstream call. status 0 means a transport
// failure.
func ObserveAPIRequest(endpoint string, status int, d time.Duration) {
	APIRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

// ObserveRateLimitWait records time spent blocked on the limiter
func ObserveRateLimitWait(d time.Duration) {
	RateLimitWaits.Inc()
	RateLimitWaitSeconds.Add(d.Seconds())
}

// ObserveJobFinished records a terminal job
func ObserveJobFinished(state string, started time.Time) {
	JobsFinished.WithLabelValues(state).Inc()
	if !started.IsZero() {
		JobDuration.Observe(time.Since(started).Seconds())
	}
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
