package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/tariff/ai"
	"github.com/poiesic/tariff/core"
	"github.com/poiesic/tariff/taxonomy"
)

// Store holds the embedding matrix for the taxonomy leaves. Row i of the
// matrix is always the vector for leaf i of the canonical leaf ordering.
// The matrix is built once by ComputeOrLoad and read-only afterwards.
type Store struct {
	embedder ai.Embedder

	vectors   [][]float32
	available bool

	cacheDir       string
	cachePath      string
	batchSize      int
	poolSize       int
	forceRecompute bool
	cachedOnly     bool
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithCacheDir sets the directory for the embedding cache file.
// Default is the current directory.
func WithCacheDir(dir string) Option {
	return func(s *Store) error {
		s.cacheDir = dir
		return nil
	}
}

// WithCachePath sets an explicit cache file path, bypassing the
// fingerprint-derived file name. The fingerprint is still stored in the
// file and verified on load, so a stale file triggers a recompute.
func WithCachePath(path string) Option {
	return func(s *Store) error {
		s.cachePath = path
		return nil
	}
}

// WithBatchSize sets the number of texts embedded per API call.
// Default is 100.
func WithBatchSize(size int) Option {
	return func(s *Store) error {
		if size < 1 {
			size = 1
		}
		s.batchSize = size
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent batch embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Store) error {
		if size < 1 {
			size = 1
		}
		s.poolSize = size
		return nil
	}
}

// WithForceRecompute bypasses the cache and recomputes all embeddings.
func WithForceRecompute(force bool) Option {
	return func(s *Store) error {
		s.forceRecompute = force
		return nil
	}
}

// WithCachedOnly restricts the store to cached embeddings. ComputeOrLoad
// fails with core.ErrCacheMiss instead of calling the embedding service.
func WithCachedOnly(cachedOnly bool) Option {
	return func(s *Store) error {
		s.cachedOnly = cachedOnly
		return nil
	}
}

// WithRetry configures retry behavior for embedding API calls.
// Defaults are 3 attempts with a 500ms base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(s *Store) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		s.maxRetries = maxAttempts
		s.retryBaseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewStore creates an embedding store backed by the given embedder. The
// embedder may be nil when operating in cached-only mode.
func NewStore(embedder ai.Embedder, opts ...Option) (*Store, error) {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	s := &Store{
		embedder:       embedder,
		cacheDir:       ".",
		batchSize:      100,
		poolSize:       poolSize,
		maxRetries:     3,
		retryBaseDelay: 500 * time.Millisecond,
		logger:         slog.Default().With("component", "embedding-store"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.embedder == nil && !s.cachedOnly {
		return nil, ErrEmbedderRequired
	}

	return s, nil
}

// InputText builds the embedding input for a leaf: its code, its label, and
// up to two nearest ancestor labels for disambiguating context. Deeper
// ancestors add noise faster than signal, so they are left out.
func InputText(leaf *taxonomy.Node) string {
	labels := leaf.PathLabels()
	ancestors := labels[:len(labels)-1]
	if len(ancestors) > 2 {
		ancestors = ancestors[len(ancestors)-2:]
	}

	parts := make([]string, 0, 4)
	if leaf.Code != "" {
		parts = append(parts, leaf.Code)
	}
	parts = append(parts, leaf.Label)
	parts = append(parts, ancestors...)
	return strings.Join(parts, " ")
}

// ComputeOrLoad populates the matrix for the given leaves, preferring the
// on-disk cache. On a cache miss the embeddings are computed in batches on
// a worker pool and the cache is rewritten. The leaf slice must be the
// canonical ordering from taxonomy.Index.Leaves().
//
// When the embedding backend cannot be reached the store degrades instead
// of failing: the error is logged, Available() stays false, and nil is
// returned. Only cache and configuration errors are reported.
func (s *Store) ComputeOrLoad(ctx context.Context, leaves []*taxonomy.Node) error {
	if len(leaves) == 0 {
		return ErrNoLeaves
	}

	texts := make([]string, len(leaves))
	for i, leaf := range leaves {
		texts[i] = InputText(leaf)
	}

	fingerprint := Fingerprint(texts)
	cachePath := s.cachePath
	if cachePath == "" {
		cachePath = filepath.Join(s.cacheDir, CacheFileName(fingerprint))
	}

	if !s.forceRecompute {
		vectors, err := loadCache(cachePath, fingerprint)
		if err == nil {
			if len(vectors) != len(leaves) {
				s.logger.Warn("cached matrix row count mismatch, recomputing",
					"cached", len(vectors), "leaves", len(leaves))
			} else {
				s.vectors = vectors
				s.available = true
				s.logger.Info("loaded embeddings from cache",
					"path", cachePath, "rows", len(vectors))
				return nil
			}
		} else if !errors.Is(err, core.ErrCacheMiss) {
			s.logger.Warn("failed to load embedding cache, recomputing",
				"path", cachePath, "err", err)
		}
	}

	if s.cachedOnly {
		return fmt.Errorf("%w: no cache at %s", core.ErrCacheMiss, cachePath)
	}

	s.logger.Info("computing embeddings",
		"leaves", len(leaves), "batch_size", s.batchSize, "pool_size", s.poolSize)

	vectors, err := s.computeBatches(ctx, texts)
	if err != nil {
		// The backend being down must not abort startup. The store stays
		// unavailable and searches return no candidates until a restart.
		s.logger.Error("embedding computation failed, store unavailable",
			"err", fmt.Errorf("%w: %w", core.ErrModelUnavailable, err))
		return nil
	}

	s.vectors = vectors
	s.available = true

	if err := saveCache(cachePath, cachedMatrix{Fingerprint: fingerprint, Vectors: vectors}); err != nil {
		// Cache persistence is best-effort; the in-memory matrix is intact.
		s.logger.Warn("failed to write embedding cache", "path", cachePath, "err", err)
	} else {
		s.logger.Info("wrote embedding cache", "path", cachePath, "rows", len(vectors))
	}

	return nil
}

// computeBatches embeds the texts in fixed-size batches on a worker pool.
// Results land in preassigned slots, so the row order is independent of
// batch completion order.
func (s *Store) computeBatches(ctx context.Context, texts []string) ([][]float32, error) {
	pool, err := ants.NewPool(s.poolSize)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	vectors := make([][]float32, len(texts))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			batch := texts[start:end]
			var embedded [][]float32
			err := RetryWithBackoff(ctx, func() error {
				var err error
				embedded, err = s.embedder.EmbedTexts(ctx, batch)
				return err
			}, s.maxRetries, s.retryBaseDelay)
			if err == nil && len(embedded) != len(batch) {
				err = fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(embedded))
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			for i, vec := range embedded {
				vectors[start+i] = NormalizeVector(vec)
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

// Available reports whether the matrix is populated.
func (s *Store) Available() bool {
	return s.available
}

// Rows returns the number of matrix rows.
func (s *Store) Rows() int {
	return len(s.vectors)
}

// Vector returns the embedding for leaf index i.
// Callers must not modify the returned slice.
func (s *Store) Vector(i int) []float32 {
	return s.vectors[i]
}

// EmbedQuery embeds a search query using the same model as the matrix.
func (s *Store) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if !s.available {
		return nil, ErrNotAvailable
	}
	if s.embedder == nil {
		return nil, core.ErrModelUnavailable
	}

	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(s.vectors) > 0 && len(vec) != len(s.vectors[0]) {
		return nil, fmt.Errorf("%w: query has %d dimensions, matrix has %d",
			ErrDimensionMismatch, len(vec), len(s.vectors[0]))
	}
	return NormalizeVector(vec), nil
}

// Similarities computes the cosine similarity of the query vector against
// every matrix row. The result index matches the canonical leaf index.
func (s *Store) Similarities(query []float32) []float32 {
	sims := make([]float32, len(s.vectors))
	for i, vec := range s.vectors {
		sims[i] = CosineSimilarity(query, vec)
	}
	return sims
}
