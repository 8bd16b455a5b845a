package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/poiesic/tariff/core"
	"github.com/poiesic/tariff/embedding"
	"github.com/poiesic/tariff/taxonomy"
)

// Scoring weights. Empirically tuned; tests pin the current behavior.
const (
	labelBoost   = 0.25
	pathBoost    = 0.15
	partialBoost = 0.1
	maxBoost     = 0.4

	labelNegativePenalty = 0.4
	pathNegativePenalty  = 0.2
	contradictionPenalty = 0.6
)

// Adaptive threshold and pruning controls.
const (
	adaptiveManyCount  = 50
	adaptiveManyRaise  = 0.2
	adaptiveManyCap    = 0.8
	adaptiveSomeCount  = 20
	adaptiveSomeRaise  = 0.1
	adaptiveSomeCap    = 0.75
	pruneWideCount     = 30
	pruneWideWindow    = 0.15
	pruneWideLimit     = 20
	pruneMediumMin     = 11
	pruneMediumLimit   = 25
)

// Engine scores taxonomy leaves against a query by combining cosine
// similarity with keyword boosting, negative-keyword penalties, technology
// contradiction penalties, and conversation-history vetoes.
type Engine struct {
	store  *embedding.Store
	leaves []*taxonomy.Node

	// Precomputed per-leaf token views; index matches the canonical leaf
	// index, same as the matrix rows.
	labelTokens [][]string
	pathTokens  [][]string
	termSets    []map[string]bool

	monitor SearchMonitor
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithMonitor sets a search monitor receiving per-stage callbacks.
func WithMonitor(monitor SearchMonitor) Option {
	return func(e *Engine) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		e.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a scoring engine over the canonical leaf list. The
// store's matrix rows must correspond to the same ordering.
func NewEngine(store *embedding.Store, leaves []*taxonomy.Node, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if len(leaves) == 0 {
		return nil, ErrLeavesRequired
	}
	if store.Available() && store.Rows() != len(leaves) {
		return nil, ErrLeafCountMismatch
	}

	e := &Engine{
		store:   store,
		leaves:  leaves,
		monitor: &noopMonitor{},
		logger:  slog.Default().With("component", "search-engine"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	e.labelTokens = make([][]string, len(leaves))
	e.pathTokens = make([][]string, len(leaves))
	e.termSets = make([]map[string]bool, len(leaves))
	for i, leaf := range leaves {
		e.labelTokens[i] = tokenizeAndFilter(leaf.Label)
		e.pathTokens[i] = tokenizeAndFilter(leaf.FullPath())
		e.termSets[i] = tokenSet(e.pathTokens[i])
	}

	return e, nil
}

// Search scores every leaf against the query and returns the candidates
// surviving thresholding and pruning, ordered by descending final score
// with ties broken by leaf index. An unavailable embedding backend yields
// an empty result, never an error.
func (e *Engine) Search(ctx context.Context, query string, threshold float32, qaHistory []core.QA) ([]core.Candidate, error) {
	e.monitor.Start(query)

	if !e.store.Available() {
		e.logger.Warn("embedding store unavailable, returning no candidates")
		e.monitor.Finish(nil)
		return []core.Candidate{}, nil
	}

	queryVec, err := e.store.EmbedQuery(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed, returning no candidates", "err", err)
		e.monitor.Finish(nil)
		return []core.Candidate{}, nil
	}
	e.monitor.AfterEncode(len(queryVec))

	baseScores := e.store.Similarities(queryVec)
	finalScores := e.scoreLeaves(baseScores, query, qaHistory)
	e.monitor.AfterScoring(len(finalScores))

	effective := adaptiveThreshold(threshold, finalScores)

	type scored struct {
		index int
		score float32
	}
	kept := make([]scored, 0, 64)
	for i, score := range finalScores {
		if score >= effective {
			kept = append(kept, scored{index: i, score: score})
		}
	}
	e.monitor.AfterThreshold(effective, len(kept))

	// Descending by score; equal scores keep leaf order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})

	// Harsh pruning for overly generic queries.
	switch {
	case len(kept) > pruneWideCount:
		top := kept[0].score
		pruned := kept[:0]
		for _, s := range kept {
			if top-s.score <= pruneWideWindow {
				pruned = append(pruned, s)
			}
		}
		kept = pruned
		if len(kept) > pruneWideLimit {
			kept = kept[:pruneWideLimit]
		}
	case len(kept) >= pruneMediumMin:
		if len(kept) > pruneMediumLimit {
			kept = kept[:pruneMediumLimit]
		}
	}
	e.monitor.AfterPruning(len(kept))

	candidates := make([]core.Candidate, len(kept))
	for i, s := range kept {
		leaf := e.leaves[s.index]
		candidates[i] = core.Candidate{
			Code:            leaf.Code,
			Description:     leaf.FullPath(),
			SimilarityScore: s.score,
		}
	}

	e.logger.Debug("search complete",
		"query", query,
		"threshold", threshold,
		"effective_threshold", effective,
		"candidates", len(candidates))
	e.monitor.Finish(candidates)

	return candidates, nil
}

// scoreLeaves computes the final score per leaf from the cosine base score,
// the keyword boost, and the accumulated penalties.
func (e *Engine) scoreLeaves(baseScores []float32, query string, qaHistory []core.QA) []float32 {
	features := extractFeatures(query)

	// Opposites of positive query terms become penalty triggers.
	var opposites []string
	for _, word := range features.positive {
		opposites = append(opposites, contradictionOpposites(word)...)
	}

	finals := make([]float32, len(baseScores))
	for i, base := range baseScores {
		var boost float32
		for _, term := range features.positive {
			switch {
			case termMatches(term, e.labelTokens[i]):
				boost += labelBoost
			case termMatches(term, e.pathTokens[i]):
				boost += pathBoost
			case termMatchesPartial(term, e.pathTokens[i]):
				boost += partialBoost
			}
		}
		if boost > maxBoost {
			boost = maxBoost
		}

		var penalty float32
		for _, term := range features.negative {
			switch {
			case termMatches(term, e.labelTokens[i]):
				penalty += labelNegativePenalty
			case termMatches(term, e.pathTokens[i]):
				penalty += pathNegativePenalty
			}
		}
		for _, opp := range opposites {
			if termMatches(opp, e.pathTokens[i]) {
				penalty += contradictionPenalty
			}
		}
		if len(qaHistory) > 0 {
			penalty += qaContradictionPenalty(qaHistory, e.termSets[i])
		}

		final := base + boost - penalty
		if final < 0 {
			final = 0
		}
		if final > 1 {
			final = 1
		}
		finals[i] = final
	}
	return finals
}

// adaptiveThreshold raises the effective threshold when too many leaves
// clear the base one, compensating for overly generic queries.
func adaptiveThreshold(base float32, scores []float32) float32 {
	above := 0
	for _, score := range scores {
		if score > base {
			above++
		}
	}

	effective := base
	switch {
	case above > adaptiveManyCount:
		effective = base + adaptiveManyRaise
		if effective > adaptiveManyCap {
			effective = adaptiveManyCap
		}
	case above > adaptiveSomeCount:
		effective = base + adaptiveSomeRaise
		if effective > adaptiveSomeCap {
			effective = adaptiveSomeCap
		}
	}
	return effective
}
