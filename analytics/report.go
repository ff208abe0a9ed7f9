package analytics

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/learning"
	"github.com/poiesic/suggestit/storage"
	"golang.org/x/sync/errgroup"
)

// TopLimit is the length of the top query and suggestion lists.
const TopLimit = 10

// Range is an inclusive time window. A zero bound leaves that side open.
type Range struct {
	Start time.Time
	End   time.Time
}

// Validate rejects windows that end before they start.
func (r Range) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return fmt.Errorf("%w: %w", core.ErrInvalidInput, ErrInvalidRange)
	}
	return nil
}

type Statistics struct {
	TotalSearches int     `json:"total_searches"`
	UniqueUsers   int     `json:"unique_users"`
	AverageRating float64 `json:"average_rating"`
}

type QueryCount struct {
	Query     string `json:"query"`
	Frequency int    `json:"frequency"`
}

type SuggestionCount struct {
	Suggestion string `json:"suggestion"`
	Frequency  int    `json:"frequency"`
}

type EventCount struct {
	EventType string `json:"event_type"`
	Count     int    `json:"count"`
}

// Report is a usage summary over a Range.
type Report struct {
	Statistics       Statistics        `json:"statistics"`
	TopQueries       []QueryCount      `json:"top_queries"`
	TopSuggestions   []SuggestionCount `json:"top_suggestions"`
	Events           []EventCount      `json:"events"`
	LearningPatterns map[string]int    `json:"learning_patterns"`
}

// Reporter builds reports from the persisted logs.
type Reporter struct {
	interactions storage.InteractionRepository
	events       storage.EventRepository
	state        *learning.State
	logger       *slog.Logger
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLearningState includes the learned query patterns of state in reports.
func WithLearningState(state *learning.State) Option {
	return func(r *Reporter) {
		r.state = state
	}
}

// NewReporter creates a reporter over the interaction and event logs.
func NewReporter(interactions storage.InteractionRepository, events storage.EventRepository, opts ...Option) (*Reporter, error) {
	if interactions == nil {
		return nil, ErrInteractionRepositoryRequired
	}
	if events == nil {
		return nil, ErrEventRepositoryRequired
	}
	r := &Reporter{
		interactions: interactions,
		events:       events,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "analytics")
	return r, nil
}

// Report aggregates the interactions and events inside rng.
func (r *Reporter) Report(ctx context.Context, rng Range) (*Report, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	var (
		interactions []*core.Interaction
		events       []*core.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if interactions, err = r.interactions.GetInteractionsByDateRange(gctx, rng.Start, rng.End); err != nil {
			return fmt.Errorf("%w: interactions: %w", core.ErrStoreUnavailable, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if events, err = r.events.GetEventsByDateRange(gctx, rng.Start, rng.End); err != nil {
			return fmt.Errorf("%w: events: %w", core.ErrStoreUnavailable, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		r.logger.Error("report failed", "err", err)
		return nil, err
	}

	report := &Report{
		Statistics:       statistics(interactions),
		TopQueries:       topQueries(interactions),
		TopSuggestions:   topSuggestions(interactions),
		Events:           eventCounts(events),
		LearningPatterns: map[string]int{},
	}
	if r.state != nil {
		report.LearningPatterns = r.state.QueryPatterns()
	}
	r.logger.Debug("report built", "interactions", len(interactions), "events", len(events))
	return report, nil
}

// statistics averages only rated interactions.
func statistics(interactions []*core.Interaction) Statistics {
	users := make(map[string]struct{})
	var sum, rated int
	for _, in := range interactions {
		users[in.UserID] = struct{}{}
		if in.Rating > 0 {
			sum += in.Rating
			rated++
		}
	}
	stats := Statistics{TotalSearches: len(interactions), UniqueUsers: len(users)}
	if rated > 0 {
		stats.AverageRating = math.Round(float64(sum)/float64(rated)*100) / 100
	}
	return stats
}

func topQueries(interactions []*core.Interaction) []QueryCount {
	counts := tally(interactions, func(in *core.Interaction) string { return in.Query })
	out := make([]QueryCount, len(counts))
	for i, c := range counts {
		out[i] = QueryCount{Query: c.Key, Frequency: c.Count}
	}
	return out
}

func topSuggestions(interactions []*core.Interaction) []SuggestionCount {
	counts := tally(interactions, func(in *core.Interaction) string { return in.Selected })
	out := make([]SuggestionCount, len(counts))
	for i, c := range counts {
		out[i] = SuggestionCount{Suggestion: c.Key, Frequency: c.Count}
	}
	return out
}

// tally counts the non-empty keys of interactions and keeps the TopLimit most frequent.
func tally(interactions []*core.Interaction, key func(*core.Interaction) string) []learning.Count {
	byKey := make(map[string]int)
	for _, in := range interactions {
		if k := key(in); k != "" {
			byKey[k]++
		}
	}
	counts := make([]learning.Count, 0, len(byKey))
	for k, v := range byKey {
		counts = append(counts, learning.Count{Key: k, Count: v})
	}
	return learning.TopN(counts, TopLimit)
}

func eventCounts(events []*core.Event) []EventCount {
	byType := make(map[string]int)
	for _, ev := range events {
		byType[ev.Type]++
	}
	out := make([]EventCount, 0, len(byType))
	for t, n := range byType {
		out = append(out, EventCount{EventType: t, Count: n})
	}
	slices.SortFunc(out, func(a, b EventCount) int {
		return cmp.Compare(a.EventType, b.EventType)
	})
	return out
}
