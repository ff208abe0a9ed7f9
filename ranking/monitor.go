package ranking

import (
	"time"

	"github.com/poiesic/suggestit/core"
)

// Monitor provides hooks to observe a ranking pass.
// Implementations must be safe for concurrent use when shared between requests.
type Monitor interface {
	Start(query string)
	CacheHit(fingerprint string)
	CacheMiss(fingerprint string)
	ColdStart(query string)
	AfterCandidates(count int)
	AfterScoring(count int, elapsed time.Duration)
	Dropped(reason, text string)
	Finish(resp *core.RankResponse, elapsed time.Duration, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                        {}
func (n *noopMonitor) CacheHit(_ string)                                     {}
func (n *noopMonitor) CacheMiss(_ string)                                    {}
func (n *noopMonitor) ColdStart(_ string)                                    {}
func (n *noopMonitor) AfterCandidates(_ int)                                 {}
func (n *noopMonitor) AfterScoring(_ int, _ time.Duration)                   {}
func (n *noopMonitor) Dropped(_, _ string)                                   {}
func (n *noopMonitor) Finish(_ *core.RankResponse, _ time.Duration, _ error) {}
