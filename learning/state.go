// Package learning holds the process-wide signals shared between requests:
// per-user recent queries and the aggregate query, selection and location
// counters. A State is created at service start and handed to the components
// that read or update it.
package learning

import (
	"cmp"
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/suggestit/storage"
)

// DefaultHistoryCap bounds the number of queries remembered per user.
const DefaultHistoryCap = 50

// Count is a key with its frequency.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// State is safe for concurrent use. Counter updates are approximate under
// contention; per-user history appends are serialized.
type State struct {
	mu         sync.RWMutex
	historyCap int
	history    map[string][]string
	queries    map[string]int
	selections map[string]int
	locations  map[string]int
	popular    map[string]int
	logger     *slog.Logger
}

// Option configures a State.
type Option func(*State)

// WithHistoryCap sets how many queries are remembered per user.
func WithHistoryCap(n int) Option {
	return func(s *State) {
		if n > 0 {
			s.historyCap = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty State.
func New(opts ...Option) *State {
	s := &State{
		historyCap: DefaultHistoryCap,
		history:    make(map[string][]string),
		queries:    make(map[string]int),
		selections: make(map[string]int),
		locations:  make(map[string]int),
		popular:    make(map[string]int),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "learning")
	return s
}

// History returns a copy of the user's remembered queries, oldest first.
func (s *State) History(user string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history[user])
}

// AppendHistory remembers query for user unless it is already remembered.
// The oldest query is forgotten once the cap is reached.
func (s *State) AppendHistory(user, query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[user]
	if slices.Contains(h, query) {
		return
	}
	h = append(h, query)
	if len(h) > s.historyCap {
		h = slices.Delete(h, 0, len(h)-s.historyCap)
	}
	s.history[user] = h
}

// RecordPopular bumps the popularity of a ranked query.
func (s *State) RecordPopular(query string) {
	s.mu.Lock()
	s.popular[strings.ToLower(query)]++
	s.mu.Unlock()
}

// RecordInteraction bumps the query and location counters, plus the selection
// counter when a suggestion was chosen.
func (s *State) RecordInteraction(query, selected, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries[strings.ToLower(query)]++
	if selected != "" {
		s.selections[strings.ToLower(selected)]++
	}
	if location != "" {
		s.locations[strings.ToLower(location)]++
	}
}

// RecordSuccess adds rating to the selection's success aggregate.
func (s *State) RecordSuccess(selected string, rating int) {
	s.mu.Lock()
	s.selections[strings.ToLower(selected)] += rating
	s.mu.Unlock()
}

// Successful reports whether text has ever been a selected suggestion.
func (s *State) Successful(text string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selections[strings.ToLower(text)]
	return ok
}

// QueryPatterns returns a snapshot of the query counter.
func (s *State) QueryPatterns() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.queries)
}

// LocationPatterns returns a snapshot of the location counter.
func (s *State) LocationPatterns() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.locations)
}

// PopularQueries returns up to n of the most ranked queries.
func (s *State) PopularQueries(n int) []Count {
	s.mu.RLock()
	counts := make([]Count, 0, len(s.popular))
	for k, v := range s.popular {
		counts = append(counts, Count{Key: k, Count: v})
	}
	s.mu.RUnlock()
	return TopN(counts, n)
}

// TopN sorts counts by descending count, then key, and keeps the first n.
// A non-positive n keeps everything.
func TopN(counts []Count, n int) []Count {
	slices.SortFunc(counts, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// Warm rebuilds the counters from the persisted interaction log. Selections
// count their rating, or one when the interaction was never rated.
func (s *State) Warm(ctx context.Context, repo storage.InteractionRepository) error {
	interactions, err := repo.GetInteractionsByDateRange(ctx, time.Time{}, time.Time{})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range interactions {
		s.queries[strings.ToLower(in.Query)]++
		if in.Selected != "" {
			s.selections[strings.ToLower(in.Selected)] += max(in.Rating, 1)
		}
		if in.Location != "" {
			s.locations[strings.ToLower(in.Location)]++
		}
	}
	s.logger.Info("learning state warmed", "interactions", len(interactions))
	return nil
}
