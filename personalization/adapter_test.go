package personalization

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/learning"
	"github.com/poiesic/suggestit/storage"
	"github.com/poiesic/suggestit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, opts ...Option) (*Adapter, *badger.Repositories, *learning.State) {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	state := learning.New()
	a, err := NewAdapter(repos.Interactions, repos.Events, state, append([]Option{WithPoolSize(2)}, opts...)...)
	require.NoError(t, err)

	t.Cleanup(func() {
		a.Release()
		repos.Close()
	})
	return a, repos, state
}

func TestNewAdapter(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	state := learning.New()

	_, err = NewAdapter(nil, repos.Events, state)
	assert.Equal(t, ErrInteractionRepositoryRequired, err)

	_, err = NewAdapter(repos.Interactions, nil, state)
	assert.Equal(t, ErrEventRepositoryRequired, err)

	_, err = NewAdapter(repos.Interactions, repos.Events, nil)
	assert.Equal(t, ErrLearningStateRequired, err)

	a, err := NewAdapter(repos.Interactions, repos.Events, state, WithLogger(nil))
	require.NoError(t, err)
	a.Release()

	_, err = NewAdapter(repos.Interactions, repos.Events, state, WithWriteTimeout(0))
	assert.ErrorContains(t, err, "write timeout")
}

func TestProfile(t *testing.T) {
	a, repos, _ := newTestAdapter(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	_, err := repos.Interactions.AddInteractions(ctx,
		&core.Interaction{UserID: "u1", Query: "plumber", Selected: "Best plumber in Austin", Rating: 5, Timestamp: base},
		&core.Interaction{UserID: "u1", Query: "plumber", Selected: "best plumber in austin", Rating: 4, Timestamp: base.Add(time.Minute)},
		&core.Interaction{UserID: "u1", Query: "roofer", Selected: "Trusted roofer nearby", Rating: 1, Timestamp: base.Add(2 * time.Minute)},
		&core.Interaction{UserID: "u1", Query: "roofer", Selected: "Trusted roofer nearby", Rating: 2, Timestamp: base.Add(3 * time.Minute)},
		&core.Interaction{UserID: "u1", Query: "baker", Selected: "Baker", Rating: 3, Timestamp: base.Add(4 * time.Minute)},
		&core.Interaction{UserID: "u1", Query: "dentist", Timestamp: base.Add(5 * time.Minute)},
		&core.Interaction{UserID: "u2", Query: "plumber", Selected: "Best plumber in Austin", Rating: 5, Timestamp: base},
	)
	require.NoError(t, err)

	profile, err := a.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"best plumber in austin": 9}, profile.Positive)
	assert.Equal(t, map[string]float64{"trusted roofer nearby": 3}, profile.Negative)

	empty, err := a.Profile(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty.Positive)
	assert.Empty(t, empty.Negative)
}

// failingInteractions fails every call it overrides.
type failingInteractions struct {
	storage.InteractionRepository
}

func (failingInteractions) GetRecentInteractionsByUser(context.Context, string, int) ([]*core.Interaction, error) {
	return nil, storage.ErrStorageClosed
}

func (failingInteractions) AddInteractions(context.Context, ...*core.Interaction) ([]*core.Interaction, error) {
	return nil, storage.ErrStorageClosed
}

func newFailingAdapter(t *testing.T) (*Adapter, *learning.State) {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	state := learning.New()
	a, err := NewAdapter(failingInteractions{}, repos.Events, state)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Release()
		repos.Close()
	})
	return a, state
}

func TestProfileStoreUnavailable(t *testing.T) {
	a, _ := newFailingAdapter(t)

	_, err := a.Profile(context.Background(), "u1")
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestRecordInteraction(t *testing.T) {
	a, repos, state := newTestAdapter(t)
	ctx := context.Background()

	a.RecordInteraction(&core.Interaction{
		UserID:      "u1",
		Query:       "Plumber",
		Suggestions: []string{"Top-rated plumber near you"},
		Location:    "Austin",
		Variant:     "B",
	})
	a.Wait()

	recent, err := repos.Interactions.GetRecentInteractionsByUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "B", recent[0].Variant)
	assert.False(t, recent[0].Timestamp.IsZero())
	assert.Equal(t, map[string]int{"plumber": 1}, state.QueryPatterns())
	assert.Equal(t, map[string]int{"austin": 1}, state.LocationPatterns())
}

func TestRecordInteractionFailureIsSwallowed(t *testing.T) {
	a, state := newFailingAdapter(t)

	a.RecordInteraction(&core.Interaction{UserID: "u1", Query: "plumber"})
	a.Wait()

	assert.Empty(t, state.QueryPatterns())
}

func TestSubmitFeedback(t *testing.T) {
	now := time.Now().UTC()
	a, repos, state := newTestAdapter(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := repos.Interactions.AddInteractions(ctx,
		&core.Interaction{UserID: "u1", Query: "plumber", Timestamp: now.Add(-2 * time.Hour)},
		&core.Interaction{UserID: "u1", Query: "plumber", Timestamp: now.Add(-10 * time.Minute)},
	)
	require.NoError(t, err)

	t.Run("updates latest interaction", func(t *testing.T) {
		err := a.SubmitFeedback(ctx, &core.Feedback{UserID: "u1", Query: "plumber", Selected: "Best plumber in Austin", Rating: 5})
		require.NoError(t, err)

		recent, err := repos.Interactions.GetRecentInteractionsByUser(ctx, "u1", 10)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "Best plumber in Austin", recent[0].Selected)
		assert.Equal(t, 5, recent[0].Rating)
		assert.Empty(t, recent[1].Selected)
		assert.True(t, state.Successful("best plumber in austin"))
	})

	t.Run("missing interaction still credits success", func(t *testing.T) {
		err := a.SubmitFeedback(ctx, &core.Feedback{UserID: "u9", Query: "roofer", Selected: "Trusted roofer nearby", Rating: 4})
		require.NoError(t, err)
		assert.True(t, state.Successful("trusted roofer nearby"))
	})

	t.Run("invalid rating", func(t *testing.T) {
		err := a.SubmitFeedback(ctx, &core.Feedback{UserID: "u1", Query: "plumber", Selected: "x", Rating: 9})
		assert.ErrorIs(t, err, core.ErrInvalidRating)
	})
}

func TestTrackEvent(t *testing.T) {
	a, repos, _ := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.TrackEvent(&core.Event{Type: "click", Payload: `{"card":"m1"}`}))
	a.Wait()

	events, err := repos.Events.GetEventsByType(ctx, "click")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, core.AnonymousUser, events[0].UserID)

	assert.ErrorIs(t, a.TrackEvent(&core.Event{UserID: "u1"}), core.ErrEmptyEventType)
}

// stalledInteractions holds every AddInteractions call until release is
// closed or the call's context ends.
type stalledInteractions struct {
	storage.InteractionRepository
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
	mu      sync.Mutex
	errs    []error
}

func newStalledInteractions() *stalledInteractions {
	return &stalledInteractions{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (s *stalledInteractions) AddInteractions(ctx context.Context, in ...*core.Interaction) ([]*core.Interaction, error) {
	s.calls.Add(1)
	s.started <- struct{}{}
	select {
	case <-s.release:
		return in, nil
	case <-ctx.Done():
		s.mu.Lock()
		s.errs = append(s.errs, ctx.Err())
		s.mu.Unlock()
		return nil, ctx.Err()
	}
}

func newStalledAdapter(t *testing.T, repo *stalledInteractions, opts ...Option) *Adapter {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	a, err := NewAdapter(repo, repos.Events, learning.New(), append([]Option{WithPoolSize(1)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Release()
		repos.Close()
	})
	return a
}

func TestRecordInteractionDoesNotWaitForBusyWorkers(t *testing.T) {
	repo := newStalledInteractions()
	a := newStalledAdapter(t, repo, WithWriteTimeout(time.Minute))
	defer close(repo.release)

	a.RecordInteraction(&core.Interaction{UserID: "u1", Query: "plumber"})
	select {
	case <-repo.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first write never started")
	}

	returned := make(chan struct{})
	go func() {
		a.RecordInteraction(&core.Interaction{UserID: "u1", Query: "roofer"})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("RecordInteraction blocked on a saturated pool")
	}
	assert.Equal(t, int32(1), repo.calls.Load(), "write beyond pool capacity is dropped")
}

func TestBackgroundWriteTimesOut(t *testing.T) {
	repo := newStalledInteractions()
	a := newStalledAdapter(t, repo, WithWriteTimeout(20*time.Millisecond))

	a.RecordInteraction(&core.Interaction{UserID: "u1", Query: "plumber"})

	waited := make(chan struct{})
	go func() {
		a.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("stalled write was not cancelled")
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.errs, 1)
	assert.ErrorIs(t, repo.errs[0], context.DeadlineExceeded)
}
