package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/suggestit/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorRanking(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.CacheMiss("fp")
	c.CacheHit("fp")
	c.CacheHit("fp")
	c.ColdStart("plumber")
	c.AfterCandidates(12)
	c.AfterScoring(12, 20*time.Millisecond)
	c.Dropped("radius", "Far Plumbing")
	c.Finish(&core.RankResponse{Suggestions: []string{"a", "b"}}, 30*time.Millisecond, nil)
	c.Finish(nil, 0, fmt.Errorf("%w: embed", core.ErrUpstreamSignal))
	c.Finish(nil, 0, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.coldStarts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dropped.WithLabelValues("radius")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rankRequests.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rankRequests.WithLabelValues(core.ReasonUpstreamSignal)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rankRequests.WithLabelValues(core.ReasonInternal)))
	assert.Equal(t, 3, testutil.CollectAndCount(c.rankRequests))
}

func TestCollectorHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveHTTP("/suggest", "POST", 200, time.Millisecond)
	c.ObserveHTTP("/suggest", "POST", 200, time.Millisecond)
	c.ObserveHTTP("/suggest", "POST", 429, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("/suggest", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("/suggest", "POST", "429")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.httpDuration))
}

func TestNewCollectorPerRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector(prometheus.NewRegistry())
		NewCollector(prometheus.NewRegistry())
	})
}
