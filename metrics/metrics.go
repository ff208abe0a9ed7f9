// Package metrics exports ranking and transport metrics to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/ranking"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "suggestit"

// OutcomeOK labels successful rank requests.
const OutcomeOK = "ok"

// Collector records ranking passes and HTTP requests. It implements
// ranking.Monitor.
type Collector struct {
	rankRequests    *prometheus.CounterVec
	rankDuration    prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	coldStarts      prometheus.Counter
	candidates      prometheus.Histogram
	scoringDuration prometheus.Histogram
	dropped         *prometheus.CounterVec
	suggestions     prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

var _ ranking.Monitor = (*Collector)(nil)

// NewCollector registers the collectors with reg. A nil reg registers with
// the default Prometheus registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		rankRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rank_requests_total",
				Help:      "Total number of rank requests by outcome",
			},
			[]string{"outcome"},
		),
		rankDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rank_duration_seconds",
				Help:      "Duration of rank requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Result cache lookups by result",
			},
			[]string{"result"},
		),
		coldStarts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cold_starts_total",
				Help:      "Rank requests answered without candidates",
			},
		),
		candidates: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "candidates",
				Help:      "Number of candidates built per ranking pass",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		scoringDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scoring_duration_seconds",
				Help:      "Duration of semantic and lexical scoring in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_candidates_total",
				Help:      "Candidates removed before rewriting, by reason",
			},
			[]string{"reason"},
		),
		suggestions: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "suggestions",
				Help:      "Number of suggestions returned per request",
				Buckets:   prometheus.LinearBuckets(0, 1, 6),
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

func (c *Collector) Start(_ string) {}

func (c *Collector) CacheHit(_ string) {
	c.cacheLookups.WithLabelValues("hit").Inc()
}

func (c *Collector) CacheMiss(_ string) {
	c.cacheLookups.WithLabelValues("miss").Inc()
}

func (c *Collector) ColdStart(_ string) {
	c.coldStarts.Inc()
}

func (c *Collector) AfterCandidates(count int) {
	c.candidates.Observe(float64(count))
}

func (c *Collector) AfterScoring(_ int, elapsed time.Duration) {
	c.scoringDuration.Observe(elapsed.Seconds())
}

func (c *Collector) Dropped(reason, _ string) {
	c.dropped.WithLabelValues(reason).Inc()
}

// Finish counts the request under its failure reason, or OutcomeOK.
func (c *Collector) Finish(resp *core.RankResponse, elapsed time.Duration, err error) {
	if err != nil {
		c.rankRequests.WithLabelValues(core.ReasonFor(err)).Inc()
		return
	}
	c.rankRequests.WithLabelValues(OutcomeOK).Inc()
	c.rankDuration.Observe(elapsed.Seconds())
	if resp != nil {
		c.suggestions.Observe(float64(len(resp.Suggestions)))
	}
}

// ObserveHTTP records one served HTTP request.
func (c *Collector) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
