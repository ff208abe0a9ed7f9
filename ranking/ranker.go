package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/suggestit/ai"
	"github.com/poiesic/suggestit/cache"
	"github.com/poiesic/suggestit/catalog"
	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/learning"
	"github.com/poiesic/suggestit/lexical"
	"github.com/poiesic/suggestit/rules"
	"github.com/poiesic/suggestit/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ColdStartFallback is returned when there is nothing to rank and no curated names exist.
const ColdStartFallback = "Popular services near you"

// ReasonColdStart marks a debug trace produced without scoring.
const ReasonColdStart = "cold_start"

// DefaultComputeTimeout bounds one pipeline run on a cache miss.
const DefaultComputeTimeout = 30 * time.Second

// ProfileSource provides per-user preference profiles.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (*core.PreferenceProfile, error)
}

// Ranker runs the suggestion ranking pipeline.
type Ranker struct {
	manual    storage.ManualRepository
	profiles  ProfileSource
	extractor ai.LocationExtractor
	state     *learning.State
	scorer    *scorer
	booster   *booster
	cache     cache.Cache
	ttl       time.Duration
	coldTTL   time.Duration
	topN      int
	limit     int
	traceSize int
	timeout   time.Duration
	now       func() time.Time
	monitor   Monitor
	flights   singleflight.Group
	logger    *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithCache enables result caching. Without a cache every request is ranked.
func WithCache(c cache.Cache) Option {
	return func(r *Ranker) error {
		r.cache = c
		return nil
	}
}

// WithCacheTTL sets how long a scored result stays valid.
// Default is 5 minutes.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Ranker) error {
		if ttl <= 0 {
			return fmt.Errorf("cache TTL must be positive, got %s", ttl)
		}
		r.ttl = ttl
		return nil
	}
}

// WithColdStartTTL sets how long a cold-start result stays valid.
// Zero disables caching of cold-start results. Default is 30 seconds.
func WithColdStartTTL(ttl time.Duration) Option {
	return func(r *Ranker) error {
		if ttl < 0 {
			return fmt.Errorf("cold start TTL must not be negative, got %s", ttl)
		}
		r.coldTTL = ttl
		return nil
	}
}

// WithWeights sets the semantic and lexical blend.
func WithWeights(w Weights) Option {
	return func(r *Ranker) error {
		r.scorer.weights = w
		return nil
	}
}

// WithBoosts replaces the boost table.
func WithBoosts(b Boosts) Option {
	return func(r *Ranker) error {
		r.booster.boosts = b
		return nil
	}
}

// WithLexicalScorer replaces the BM25 lexical scorer.
func WithLexicalScorer(s LexicalScorer) Option {
	return func(r *Ranker) error {
		if s != nil {
			r.scorer.lexical = s
		}
		return nil
	}
}

// WithRules adds configured business-rule boosts.
func WithRules(e *rules.Engine) Option {
	return func(r *Ranker) error {
		r.booster.rules = e
		return nil
	}
}

// WithTopN sets how many boosted candidates are rewritten.
// Default is 5.
func WithTopN(n int) Option {
	return func(r *Ranker) error {
		if n < 1 {
			return fmt.Errorf("top N must be at least 1, got %d", n)
		}
		r.topN = n
		return nil
	}
}

// WithMaxSuggestions caps the suggestion list.
// Default is 5.
func WithMaxSuggestions(n int) Option {
	return func(r *Ranker) error {
		if n < 1 {
			return fmt.Errorf("max suggestions must be at least 1, got %d", n)
		}
		r.limit = n
		return nil
	}
}

// WithComputeTimeout bounds a pipeline run on a cache miss. The run is
// shared by concurrent identical requests and is not cancelled when one of
// them goes away.
// Default is DefaultComputeTimeout.
func WithComputeTimeout(d time.Duration) Option {
	return func(r *Ranker) error {
		if d <= 0 {
			return fmt.Errorf("compute timeout must be positive, got %s", d)
		}
		r.timeout = d
		return nil
	}
}

// WithMonitor sets the monitor used by Rank.
func WithMonitor(m Monitor) Option {
	return func(r *Ranker) error {
		if m != nil {
			r.monitor = m
		}
		return nil
	}
}

// WithClock replaces the wall clock used for cache timestamps and opening hours.
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) error {
		if now != nil {
			r.now = now
		}
		return nil
	}
}

// NewRanker creates a new ranker.
func NewRanker(
	manual storage.ManualRepository,
	profiles ProfileSource,
	provider ai.AIProvider,
	state *learning.State,
	opts ...Option,
) (*Ranker, error) {
	if manual == nil {
		return nil, ErrManualRepositoryRequired
	}
	if profiles == nil {
		return nil, ErrProfileSourceRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if state == nil {
		return nil, ErrLearningStateRequired
	}

	r := &Ranker{
		manual:    manual,
		profiles:  profiles,
		extractor: provider.LocationExtractor(),
		state:     state,
		scorer: &scorer{
			embedder: provider.Embedder(),
			lexical:  lexical.NewBM25(),
			weights:  DefaultWeights(),
		},
		booster:   &booster{boosts: DefaultBoosts(), state: state},
		ttl:       5 * time.Minute,
		coldTTL:   30 * time.Second,
		topN:      5,
		limit:     5,
		traceSize: 10,
		timeout:   DefaultComputeTimeout,
		now:       time.Now,
		monitor:   &noopMonitor{},
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "ranker")

	return r, nil
}

// Rank produces suggestions for req.
func (r *Ranker) Rank(ctx context.Context, req *core.RankRequest) (*core.RankResponse, error) {
	return r.RankWithMonitor(ctx, req, nil)
}

// RankWithMonitor produces suggestions for req and reports each stage to
// monitor. A nil monitor falls back to the ranker's own.
func (r *Ranker) RankWithMonitor(ctx context.Context, req *core.RankRequest, monitor Monitor) (*core.RankResponse, error) {
	if monitor == nil {
		monitor = r.monitor
	}
	started := r.now()

	if err := core.NormalizeRankRequest(req); err != nil {
		monitor.Finish(nil, 0, err)
		return nil, err
	}
	monitor.Start(req.Query)

	intent := DetectIntent(req.Query)
	fingerprint := cache.Fingerprint(cache.Key{
		Query:     req.Query,
		UserID:    req.UserID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Intent:    intent,
		RadiusKm:  req.Catalog.Settings.RadiusKm,
	})

	entry, cached := r.lookup(ctx, fingerprint)
	if cached {
		monitor.CacheHit(fingerprint)
	} else {
		monitor.CacheMiss(fingerprint)
		flight := r.flights.DoChan(fingerprint, func() (any, error) {
			shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
			defer cancel()
			return r.compute(shared, req, intent, fingerprint, monitor)
		})
		var res singleflight.Result
		select {
		case res = <-flight:
		case <-ctx.Done():
			res.Err = ctx.Err()
		}
		if res.Err != nil {
			r.logger.Error("ranking failed", "query", req.Query, "reason", core.ReasonFor(res.Err), "err", res.Err)
			monitor.Finish(nil, r.now().Sub(started), res.Err)
			return nil, res.Err
		}
		entry = res.Val.(*cache.Entry)
	}

	resp := &core.RankResponse{
		Query:       req.Query,
		Suggestions: slices.Clone(entry.Suggestions),
		Cards:       slices.Clone(entry.Cards),
		UserID:      req.UserID,
		Timestamp:   r.now(),
		Cached:      cached,
	}
	if req.Debug {
		resp.Debug = entry.Debug
	}
	monitor.Finish(resp, r.now().Sub(started), nil)
	return resp, nil
}

func (r *Ranker) lookup(ctx context.Context, fingerprint string) (*cache.Entry, bool) {
	if r.cache == nil {
		return nil, false
	}
	entry, ok, err := r.cache.Get(ctx, fingerprint)
	if err != nil {
		r.logger.Warn("cache read failed", "err", err)
		return nil, false
	}
	return entry, ok
}

func (r *Ranker) store(ctx context.Context, entry *cache.Entry) {
	if r.cache == nil || entry.TTL <= 0 {
		return
	}
	if err := r.cache.Put(ctx, entry); err != nil {
		r.logger.Warn("cache write failed", "err", err)
	}
}

// compute runs the full pipeline for a cache miss.
func (r *Ranker) compute(ctx context.Context, req *core.RankRequest, intent, fingerprint string, monitor Monitor) (*cache.Entry, error) {
	var (
		records []*core.ManualRecord
		profile *core.PreferenceProfile
		city    string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = r.manual.GetManualRecords(gctx, false)
		if err != nil {
			return fmt.Errorf("%w: manual records: %w", core.ErrStoreUnavailable, err)
		}
		return nil
	})
	g.Go(func() error {
		p, err := r.profiles.Profile(gctx, req.UserID)
		if err != nil {
			r.logger.Warn("preference profile unavailable", "user", req.UserID, "err", err)
			return nil
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		places, err := r.extractor.ExtractLocations(gctx, req.Query)
		if err != nil {
			r.logger.Warn("location extraction failed", "err", err)
			return nil
		}
		if len(places) > 0 {
			city = places[0]
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := catalog.Build(req.Catalog, records)
	monitor.AfterCandidates(len(candidates))
	if len(candidates) == 0 {
		return r.coldStart(ctx, req, records, intent, fingerprint, monitor), nil
	}

	dict := catalog.DictionariesFrom(records)
	expanded := Expand(req.Query, dict)

	texts := make([]string, len(candidates))
	for i := range candidates {
		texts[i] = candidates[i].Text
	}
	scoringStarted := r.now()
	s, err := r.scorer.score(ctx, expanded, texts)
	if err != nil {
		return nil, err
	}
	monitor.AfterScoring(len(candidates), r.now().Sub(scoringStarted))

	in := &boostInput{
		query:     req.Query,
		intent:    intent,
		history:   append(slices.Clone(req.History), r.state.History(req.UserID)...),
		city:      city,
		caller:    callerCoordinates(req),
		radiusKm:  req.Catalog.Settings.RadiusKm,
		profile:   profile,
		blacklist: dict.Blacklist,
		now:       r.now(),
	}
	dropped := make(map[string]int)
	ranked := r.booster.apply(candidates, s.base, in, func(reason, text string) {
		dropped[reason]++
		monitor.Dropped(reason, text)
	})

	top := ranked[:min(r.topN, len(ranked))]
	suggestions, cards := rewrite(top, city, intent, r.limit)

	r.state.AppendHistory(req.UserID, req.Query)
	r.state.RecordPopular(req.Query)

	trace := &core.DebugTrace{
		Intent:        intent,
		City:          city,
		ExpandedQuery: expanded,
		Candidates:    len(candidates),
		TopCandidates: traceOf(ranked[:min(r.traceSize, len(ranked))]),
	}
	if len(dropped) > 0 {
		trace.Dropped = dropped
	}

	entry := &cache.Entry{
		Fingerprint: fingerprint,
		CreatedAt:   r.now(),
		TTL:         r.ttl,
		Suggestions: suggestions,
		Cards:       cards,
		Debug:       trace,
	}
	r.store(ctx, entry)
	return entry, nil
}

// coldStart answers without scoring when no candidates exist.
func (r *Ranker) coldStart(ctx context.Context, req *core.RankRequest, records []*core.ManualRecord, intent, fingerprint string, monitor Monitor) *cache.Entry {
	monitor.ColdStart(req.Query)
	names := catalog.ColdStartNames(records, r.limit)
	if len(names) == 0 {
		names = []string{ColdStartFallback}
	}
	entry := &cache.Entry{
		Fingerprint: fingerprint,
		CreatedAt:   r.now(),
		TTL:         r.coldTTL,
		Suggestions: names,
		Cards:       []core.Card{},
		Debug:       &core.DebugTrace{Reason: ReasonColdStart, Intent: intent},
	}
	r.store(ctx, entry)
	return entry
}

func callerCoordinates(req *core.RankRequest) *core.Coordinates {
	if req.Latitude == nil || req.Longitude == nil {
		return nil
	}
	return &core.Coordinates{Lat: *req.Latitude, Lon: *req.Longitude}
}

func traceOf(ranked []*scored) []core.TraceCandidate {
	out := make([]core.TraceCandidate, len(ranked))
	for i, s := range ranked {
		out[i] = core.TraceCandidate{
			Text:       s.candidate.Text,
			Kind:       s.candidate.Kind,
			Score:      round(s.score(), 4),
			Base:       round(s.base, 4),
			Boost:      round(s.boost, 4),
			DistanceKm: s.distanceKm,
			Signals:    s.signals,
		}
	}
	return out
}
