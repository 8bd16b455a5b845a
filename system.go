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


package tariff

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/tariff/advisor"
	"github.com/poiesic/tariff/ai"
	"github.com/poiesic/tariff/ai/openai"
	"github.com/poiesic/tariff/classify"
	"github.com/poiesic/tariff/core"
	"github.com/poiesic/tariff/embedding"
	"github.com/poiesic/tariff/search"
	"github.com/poiesic/tariff/storage"
	"github.com/poiesic/tariff/storage/badger"
	"github.com/poiesic/tariff/taxonomy"
)

// System assembles the full classification stack: the taxonomy index, the
// embedding store, the scoring engine, the query and question advisors, the
// orchestrator, and the precedent archive.
type System struct {
	backend      *badger.Backend
	precedents   storage.PrecedentRepository
	provider     ai.AIProvider
	index        *taxonomy.Index
	store        *embedding.Store
	engine       *search.Engine
	orchestrator *classify.Orchestrator
	logger       *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig       *ai.Config
	provider       ai.AIProvider
	cacheDir       string
	cachedOnly     bool
	forceRecompute bool
	inMemory       bool
	maxIterations  int
	threshold      float32
}

// WithAIConfig overrides the AI service configuration.
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider supplies an already constructed AI provider instead of the
// default OpenAI-compatible one. The system takes ownership and closes it.
func WithProvider(provider ai.AIProvider) SystemOption {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithEmbeddingCacheDir sets the directory for the embedding matrix cache.
func WithEmbeddingCacheDir(dir string) SystemOption {
	return func(o *systemOptions) {
		o.cacheDir = dir
	}
}

// WithCachedEmbeddingsOnly refuses to call the embedding model; the system
// starts only if a matching cache exists.
func WithCachedEmbeddingsOnly() SystemOption {
	return func(o *systemOptions) {
		o.cachedOnly = true
	}
}

// WithForceRecompute recomputes the embedding matrix even when a matching
// cache exists.
func WithForceRecompute() SystemOption {
	return func(o *systemOptions) {
		o.forceRecompute = true
	}
}

// WithInMemoryStorage keeps precedents in memory instead of on disk.
func WithInMemoryStorage() SystemOption {
	return func(o *systemOptions) {
		o.inMemory = true
	}
}

// WithClassifyMaxIterations bounds the classification loop.
func WithClassifyMaxIterations(n int) SystemOption {
	return func(o *systemOptions) {
		o.maxIterations = n
	}
}

// WithClassifyThreshold sets the base similarity threshold.
func WithClassifyThreshold(threshold float32) SystemOption {
	return func(o *systemOptions) {
		o.threshold = threshold
	}
}

// NewSystem loads the taxonomy from taxonomySource, prepares the embedding
// matrix (computing it over the model if no cache matches), opens the
// precedent store at dataPath and wires the classification loop on top.
// A dead embedding backend is not fatal: the system starts with an empty
// matrix and every search returns no candidates. Taxonomy, cache, and
// storage errors are fatal.
func NewSystem(ctx context.Context, dataPath string, taxonomySource io.Reader, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	logger := slog.Default()

	rows, err := taxonomy.ParseCSV(taxonomySource, logger)
	if err != nil {
		return nil, err
	}
	index, err := taxonomy.Load(rows)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	storeOpts := []embedding.Option{}
	if options.cacheDir != "" {
		storeOpts = append(storeOpts, embedding.WithCacheDir(options.cacheDir))
	}
	if options.cachedOnly {
		storeOpts = append(storeOpts, embedding.WithCachedOnly(true))
	}
	if options.forceRecompute {
		storeOpts = append(storeOpts, embedding.WithForceRecompute(true))
	}
	store, err := embedding.NewStore(provider.Embedder(), storeOpts...)
	if err != nil {
		provider.Close()
		return nil, err
	}
	if err := store.ComputeOrLoad(ctx, index.Leaves()); err != nil {
		provider.Close()
		return nil, err
	}

	engine, err := search.NewEngine(store, index.Leaves())
	if err != nil {
		provider.Close()
		return nil, err
	}

	synthesizer, err := advisor.NewSynthesizer(provider.Generator())
	if err != nil {
		provider.Close()
		return nil, err
	}
	questions, err := advisor.NewQuestionGenerator(provider.Generator())
	if err != nil {
		provider.Close()
		return nil, err
	}

	classifyOpts := []classify.Option{}
	if options.maxIterations > 0 {
		classifyOpts = append(classifyOpts, classify.WithMaxIterations(options.maxIterations))
	}
	if options.threshold > 0 {
		classifyOpts = append(classifyOpts, classify.WithThreshold(options.threshold))
	}
	orchestrator, err := classify.NewOrchestrator(engine, synthesizer, questions, classifyOpts...)
	if err != nil {
		provider.Close()
		return nil, err
	}

	backend, err := badger.OpenBackend(dataPath, options.inMemory)
	if err != nil {
		provider.Close()
		return nil, err
	}
	precedents, err := badger.NewPrecedentRepository(backend)
	if err != nil {
		backend.Close()
		provider.Close()
		return nil, err
	}

	return &System{
		backend:      backend,
		precedents:   precedents,
		provider:     provider,
		index:        index,
		store:        store,
		engine:       engine,
		orchestrator: orchestrator,
		logger:       logger,
	}, nil
}

// Close releases the AI provider and the precedent store.
func (s *System) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.precedents.Close(); err != nil {
		s.logger.Error("error closing precedent repository", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Classify opens a new classification session for the description.
func (s *System) Classify(ctx context.Context, description string) (*classify.Session, *classify.Turn, error) {
	return s.orchestrator.Start(ctx, description)
}

// Run drives a full classification, calling answerFn for every question.
func (s *System) Run(ctx context.Context, description string, answerFn func(question string, options []string) (string, error)) (*core.Result, error) {
	return s.orchestrator.Run(ctx, description, answerFn)
}

// Search runs a one-shot query against the taxonomy without a session.
func (s *System) Search(ctx context.Context, query string, threshold float32) ([]core.Candidate, error) {
	return s.engine.Search(ctx, query, threshold, nil)
}

// SavePrecedent archives a terminated session.
func (s *System) SavePrecedent(ctx context.Context, session *classify.Session) (*core.Precedent, error) {
	precedent, err := session.Precedent()
	if err != nil {
		return nil, err
	}
	if _, err := s.precedents.AddPrecedents(ctx, precedent); err != nil {
		return nil, err
	}
	return precedent, nil
}

// Precedents exposes the precedent archive.
func (s *System) Precedents() storage.PrecedentRepository {
	return s.precedents
}

// Taxonomy exposes the loaded taxonomy index.
func (s *System) Taxonomy() *taxonomy.Index {
	return s.index
}

// EmbeddingRows reports how many taxonomy leaves are covered by the
// embedding matrix.
func (s *System) EmbeddingRows() int {
	return s.store.Rows()
}
