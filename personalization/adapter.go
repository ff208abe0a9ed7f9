// Package personalization reads per-user preference profiles from the
// interaction log and writes interactions, feedback and events back to it.
//
// Writes are best-effort: they run on a worker pool after the caller has its
// answer, and failures are logged rather than returned.
package personalization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/learning"
	"github.com/poiesic/suggestit/storage"
)

const (
	// positiveWindow is how many rating > 3 interactions feed the positive weights.
	positiveWindow = 50
	// negativeWindow is how many poorly rated selections feed the negative weights.
	negativeWindow = 100
	// scanWindow bounds how far back a profile read looks.
	scanWindow = 1000
	// feedbackWindow is how old an interaction may be and still receive feedback.
	feedbackWindow = time.Hour
)

const (
	// DefaultPoolSize is the default number of background writers. ants starts
	// workers lazily, so idle capacity costs nothing.
	DefaultPoolSize = 64
	// DefaultWriteTimeout bounds a single background write.
	DefaultWriteTimeout = 5 * time.Second
)

// Adapter implements preference reads and best-effort writes over the
// persistent store.
type Adapter struct {
	interactions storage.InteractionRepository
	events       storage.EventRepository
	state        *learning.State
	pool         *ants.Pool
	poolSize     int
	writeTimeout time.Duration
	pending      sync.WaitGroup
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter) error

// WithPoolSize sets the worker pool size for background writes.
// Default is DefaultPoolSize. Writes submitted while every worker is busy
// are dropped.
func WithPoolSize(size int) Option {
	return func(a *Adapter) error {
		if size < 1 {
			size = 1
		}
		a.poolSize = size
		return nil
	}
}

// WithWriteTimeout bounds each background write.
// Default is DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(a *Adapter) error {
		if d <= 0 {
			return fmt.Errorf("write timeout must be positive, got %s", d)
		}
		a.writeTimeout = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) error {
		if now != nil {
			a.now = now
		}
		return nil
	}
}

// NewAdapter creates an adapter over the interaction and event logs.
func NewAdapter(
	interactions storage.InteractionRepository,
	events storage.EventRepository,
	state *learning.State,
	opts ...Option,
) (*Adapter, error) {
	if interactions == nil {
		return nil, ErrInteractionRepositoryRequired
	}
	if events == nil {
		return nil, ErrEventRepositoryRequired
	}
	if state == nil {
		return nil, ErrLearningStateRequired
	}

	a := &Adapter{
		interactions: interactions,
		events:       events,
		state:        state,
		poolSize:     DefaultPoolSize,
		writeTimeout: DefaultWriteTimeout,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	// Submit must never park the caller: a request path hands writes off
	// and returns, so a saturated pool rejects with ants.ErrPoolOverload.
	pool, err := ants.NewPool(a.poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	a.pool = pool
	a.logger = a.logger.With("component", "personalization")
	return a, nil
}

// Profile derives the user's preference weights from their recent interactions.
// Positive weights sum the ratings of the 50 latest interactions rated above 3;
// negative weights sum 3 - rating over the 100 latest selections rated 2 or less.
func (a *Adapter) Profile(ctx context.Context, userID string) (*core.PreferenceProfile, error) {
	recent, err := a.interactions.GetRecentInteractionsByUser(ctx, userID, scanWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}

	profile := &core.PreferenceProfile{
		Positive: make(map[string]float64),
		Negative: make(map[string]float64),
	}
	var positives, negatives int
	for _, in := range recent {
		if in.Rating > 3 && positives < positiveWindow {
			positives++
			if in.Selected != "" {
				profile.Positive[strings.ToLower(in.Selected)] += float64(in.Rating)
			}
		}
		if in.Selected != "" && in.Rating <= 2 && negatives < negativeWindow {
			negatives++
			profile.Negative[strings.ToLower(in.Selected)] += float64(3 - in.Rating)
		}
	}
	return profile, nil
}

// RecordInteraction persists in and bumps the learning counters in the background.
func (a *Adapter) RecordInteraction(in *core.Interaction) {
	if in.Timestamp.IsZero() {
		in.Timestamp = a.now().UTC()
	}
	a.submit("record interaction", func(ctx context.Context) error {
		if _, err := a.interactions.AddInteractions(ctx, in); err != nil {
			return err
		}
		a.state.RecordInteraction(in.Query, in.Selected, in.Location)
		return nil
	})
}

// TrackEvent validates event and persists it in the background.
func (a *Adapter) TrackEvent(event *core.Event) error {
	if err := core.ValidateEvent(event); err != nil {
		return err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = a.now().UTC()
	}
	a.submit("track event", func(ctx context.Context) error {
		_, err := a.events.AddEvents(ctx, event)
		return err
	})
	return nil
}

// SubmitFeedback attaches the selection and rating to the user's latest
// interaction for the same query within the last hour, then credits the
// selection in the global success aggregate. A missing interaction is not an
// error; only validation failures are returned.
func (a *Adapter) SubmitFeedback(ctx context.Context, fb *core.Feedback) error {
	if err := core.ValidateFeedback(fb); err != nil {
		return err
	}

	now := a.now().UTC()
	in, err := a.interactions.FindLatestInteraction(ctx, fb.UserID, fb.Query, now.Add(-feedbackWindow))
	switch {
	case err == nil:
		in.Selected = fb.Selected
		in.Rating = fb.Rating
		in.UpdatedAt = now
		if _, err := a.interactions.UpdateInteractions(ctx, in); err != nil {
			a.logger.Error("error applying feedback", "user", fb.UserID, "query", fb.Query, "err", err)
		}
	case errors.Is(err, storage.ErrNotFound):
		a.logger.Debug("no recent interaction for feedback", "user", fb.UserID, "query", fb.Query)
	default:
		a.logger.Error("error finding interaction for feedback", "user", fb.UserID, "query", fb.Query, "err", err)
	}

	a.state.RecordSuccess(fb.Selected, fb.Rating)
	return nil
}

func (a *Adapter) submit(op string, fn func(ctx context.Context) error) {
	a.pending.Add(1)
	err := a.pool.Submit(func() {
		defer a.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			a.logger.Error("background write failed", "op", op, "err", err)
		}
	})
	if err != nil {
		a.pending.Done()
		a.logger.Error("background write dropped", "op", op, "err", err)
	}
}

// Wait blocks until every submitted write has finished.
func (a *Adapter) Wait() {
	a.pending.Wait()
}

// Release waits for pending writes and releases the worker pool.
// The adapter should not be used after calling Release.
func (a *Adapter) Release() {
	a.pending.Wait()
	if a.pool != nil {
		a.pool.Release()
	}
}
