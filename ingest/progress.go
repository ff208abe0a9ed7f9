package ingest

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports how far an import has come.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	done           int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	now            func() time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a tracker for total items that writes a progress
// line to writer every reportInterval items.
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: max(reportInterval, 1),
		now:            time.Now,
	}
}

// Start begins tracking.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = p.now()
	p.started = true
	p.done = 0
	p.failed = 0
	p.lastReported = 0
}

// Add records imported and failed items.
func (p *ProgressTracker) Add(imported, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.done = min(p.done+imported+failed, p.total)
	p.failed += failed

	if p.done-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.done
	}
}

// Finish prints the final line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return p.now().Sub(p.startTime)
}

// report must be called with the lock held.
func (p *ProgressTracker) report() {
	var rate float64
	if elapsed := p.now().Sub(p.startTime).Seconds(); elapsed > 0 {
		rate = float64(p.done) / elapsed
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.done) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rImported: %d/%d (%.1f%%), %d failed - %.1f items/s",
		p.done, p.total, percentage, p.failed, rate)
}
