// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package suggestit wires the ranking pipeline, its stores and the learning
// state into a single Service.
package suggestit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/suggestit/ai"
	"github.com/poiesic/suggestit/ai/openai"
	"github.com/poiesic/suggestit/analytics"
	"github.com/poiesic/suggestit/cache"
	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/ingest"
	"github.com/poiesic/suggestit/learning"
	"github.com/poiesic/suggestit/personalization"
	"github.com/poiesic/suggestit/ranking"
	"github.com/poiesic/suggestit/storage/badger"
)

// DefaultAddedBy is recorded on manual records added without an author.
const DefaultAddedBy = "admin"

// Service is the suggestion service: ranking, feedback, manual data, events
// and analytics over one BadgerDB store.
type Service struct {
	repos    *badger.Repositories
	provider ai.AIProvider
	state    *learning.State
	adapter  *personalization.Adapter
	ranker   *ranking.Ranker
	reporter *analytics.Reporter
	cache    cache.Cache
	model    string
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*options)

type options struct {
	inMemory     bool
	aiConfig     *ai.Config
	provider     ai.AIProvider
	cache        cache.Cache
	monitor      ranking.Monitor
	rankingOpts  []ranking.Option
	historyCap   int
	poolSize     int
	writeTimeout time.Duration
	logger       *slog.Logger
}

// WithInMemory keeps the store in memory. The path passed to Open is ignored.
func WithInMemory() Option {
	return func(o *options) {
		o.inMemory = true
	}
}

// WithAIConfig configures the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = config
	}
}

// WithAIProvider uses provider instead of building one from the AI config.
// The service closes it on Close.
func WithAIProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithCache enables result caching. The service owns the cache from then on,
// closing it on Close or when Open fails.
func WithCache(c cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithMonitor observes every ranking pass.
func WithMonitor(m ranking.Monitor) Option {
	return func(o *options) {
		o.monitor = m
	}
}

// WithRankingOptions passes extra options to the ranker.
func WithRankingOptions(opts ...ranking.Option) Option {
	return func(o *options) {
		o.rankingOpts = append(o.rankingOpts, opts...)
	}
}

// WithHistoryCap bounds the remembered queries per user.
func WithHistoryCap(n int) Option {
	return func(o *options) {
		o.historyCap = n
	}
}

// WithPoolSize sets the number of background writers.
func WithPoolSize(n int) Option {
	return func(o *options) {
		o.poolSize = n
	}
}

// WithWriteTimeout bounds each background write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open opens the store at path, rebuilds the learning state from the
// interaction log and assembles the service.
func Open(ctx context.Context, path string, opts ...Option) (*Service, error) {
	o := &options{
		aiConfig:   ai.DefaultConfig(),
		historyCap: learning.DefaultHistoryCap,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	repos, err := badger.OpenRepositories(path, o.inMemory, badger.WithLogger(o.logger))
	if err != nil {
		if o.cache != nil {
			o.cache.Close()
		}
		return nil, err
	}
	s := &Service{
		repos:  repos,
		cache:  o.cache,
		model:  o.aiConfig.EmbeddingModel,
		logger: o.logger.With("component", "service"),
	}

	if err := s.assemble(ctx, o); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) assemble(ctx context.Context, o *options) error {
	s.provider = o.provider
	if s.provider == nil {
		provider, err := openai.NewProvider(o.aiConfig, openai.WithLogger(o.logger))
		if err != nil {
			return fmt.Errorf("create AI provider: %w", err)
		}
		s.provider = provider
	}

	s.state = learning.New(learning.WithHistoryCap(o.historyCap), learning.WithLogger(o.logger))
	if err := s.state.Warm(ctx, s.repos.Interactions); err != nil {
		return fmt.Errorf("warm learning state: %w", err)
	}

	adapterOpts := []personalization.Option{personalization.WithLogger(o.logger)}
	if o.poolSize > 0 {
		adapterOpts = append(adapterOpts, personalization.WithPoolSize(o.poolSize))
	}
	if o.writeTimeout > 0 {
		adapterOpts = append(adapterOpts, personalization.WithWriteTimeout(o.writeTimeout))
	}
	adapter, err := personalization.NewAdapter(s.repos.Interactions, s.repos.Events, s.state, adapterOpts...)
	if err != nil {
		return err
	}
	s.adapter = adapter

	rankingOpts := []ranking.Option{ranking.WithLogger(o.logger), ranking.WithMonitor(o.monitor)}
	if o.cache != nil {
		rankingOpts = append(rankingOpts, ranking.WithCache(o.cache))
	}
	s.ranker, err = ranking.NewRanker(s.repos.Manual, s.adapter, s.provider, s.state, append(rankingOpts, o.rankingOpts...)...)
	if err != nil {
		return err
	}

	s.reporter, err = analytics.NewReporter(s.repos.Interactions, s.repos.Events,
		analytics.WithLearningState(s.state), analytics.WithLogger(o.logger))
	return err
}

// Close waits for background writes and releases every resource.
func (s *Service) Close() error {
	if s.adapter != nil {
		s.adapter.Release()
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("error closing cache", "err", err)
		}
	}
	if err := s.repos.Close(); err != nil {
		s.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}

// EmbeddingModel names the embedding model in use.
func (s *Service) EmbeddingModel() string {
	return s.model
}

// Rank ranks req and records the interaction in the background.
func (s *Service) Rank(ctx context.Context, req *core.RankRequest) (*core.RankResponse, error) {
	resp, err := s.ranker.Rank(ctx, req)
	if err != nil {
		return nil, err
	}
	s.adapter.RecordInteraction(&core.Interaction{
		UserID:      resp.UserID,
		Query:       resp.Query,
		Suggestions: resp.Suggestions,
		Location:    strings.TrimSpace(req.Location),
		Variant:     strings.TrimSpace(req.Variant),
	})
	return resp, nil
}

// Feedback attaches a verdict to the user's latest matching interaction.
func (s *Service) Feedback(ctx context.Context, fb *core.Feedback) error {
	return s.adapter.SubmitFeedback(ctx, fb)
}

// TrackEvent validates and stores an analytics event in the background.
func (s *Service) TrackEvent(event *core.Event) error {
	return s.adapter.TrackEvent(event)
}

// AddManual stores one active manual record.
func (s *Service) AddManual(ctx context.Context, kind core.ManualKind, content core.ManualContent, addedBy string) (*core.ManualRecord, error) {
	if addedBy = strings.TrimSpace(addedBy); addedBy == "" {
		addedBy = DefaultAddedBy
	}
	record := &core.ManualRecord{Kind: kind, Content: content, AddedBy: addedBy, Active: true}
	if err := core.ValidateManualRecord(record); err != nil {
		return nil, err
	}
	if _, err := s.repos.Manual.AddManualRecords(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return record, nil
}

// ListManual lists active manual records, optionally of a single kind.
func (s *Service) ListManual(ctx context.Context, kind core.ManualKind) ([]*core.ManualRecord, error) {
	var kinds []core.ManualKind
	if kind != "" {
		if err := core.ValidateManualKind(kind); err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	records, err := s.repos.Manual.GetManualRecords(ctx, false, kinds...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return records, nil
}

// SetManualActive enables or disables a manual record.
func (s *Service) SetManualActive(ctx context.Context, id core.ID, active bool) error {
	return s.repos.Manual.SetManualRecordActive(ctx, id, active)
}

// Import stores a batch of manual records.
func (s *Service) Import(ctx context.Context, batch *ingest.Batch, opts ...ingest.Option) (*ingest.Result, error) {
	importer, err := ingest.NewImporter(s.repos.Manual, append([]ingest.Option{ingest.WithLogger(s.logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return importer.Import(ctx, batch)
}

// Analytics reports usage inside rng.
func (s *Service) Analytics(ctx context.Context, rng analytics.Range) (*analytics.Report, error) {
	return s.reporter.Report(ctx, rng)
}

// Flush blocks until every background write has finished.
func (s *Service) Flush() {
	s.adapter.Wait()
}
