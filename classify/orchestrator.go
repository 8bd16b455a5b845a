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


package classify

import (
	"context"
	"log/slog"

	"github.com/poiesic/tariff/advisor"
	"github.com/poiesic/tariff/core"
)

const (
	// defaultMaxIterations bounds the search/question loop.
	defaultMaxIterations = 6

	// defaultThreshold is the base similarity threshold handed to the
	// search engine each turn.
	defaultThreshold = 0.6

	// highConfidenceScore separates a committed classification from one
	// flagged for manual review.
	highConfidenceScore = 0.8
)

// SearchEngine scores a query against the taxonomy and returns surviving
// candidates in descending score order.
type SearchEngine interface {
	Search(ctx context.Context, query string, threshold float32, qaHistory []core.QA) ([]core.Candidate, error)
}

// QuerySynthesizer turns the accumulated session state into the next search
// query. It must always return a usable query.
type QuerySynthesizer interface {
	Synthesize(ctx context.Context, state *core.ConversationState, candidates []core.Candidate, relevant bool) string
}

// QuestionGenerator decides between asking one more question and concluding.
type QuestionGenerator interface {
	GenerateNext(ctx context.Context, state *core.ConversationState) core.Outcome
}

// RelevanceFunc judges whether a candidate set plausibly belongs to the
// described product.
type RelevanceFunc func(description string, candidates []core.Candidate) bool

// Orchestrator drives the iterative classification loop: synthesize a
// query, search, check convergence, and either conclude or ask the caller
// one more question. It is stateless across sessions; all per-classification
// state lives in the Session it hands out.
type Orchestrator struct {
	engine        SearchEngine
	synthesizer   QuerySynthesizer
	questions     QuestionGenerator
	relevant      RelevanceFunc
	maxIterations int
	threshold     float32
	logger        *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithMaxIterations overrides the iteration bound.
// Default is 6. Values below 2 are rejected so a session always has at
// least one chance to ask a question.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) error {
		if n < 2 {
			return ErrInvalidMaxIterations
		}
		o.maxIterations = n
		return nil
	}
}

// WithThreshold overrides the base similarity threshold.
// Default is 0.6.
func WithThreshold(threshold float32) Option {
	return func(o *Orchestrator) error {
		if threshold <= 0 || threshold >= 1 {
			return ErrInvalidThreshold
		}
		o.threshold = threshold
		return nil
	}
}

// WithRelevanceFunc overrides the candidate relevance judge.
func WithRelevanceFunc(fn RelevanceFunc) Option {
	return func(o *Orchestrator) error {
		if fn != nil {
			o.relevant = fn
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator wires the three collaborators into a classification loop.
func NewOrchestrator(engine SearchEngine, synthesizer QuerySynthesizer, questions QuestionGenerator, opts ...Option) (*Orchestrator, error) {
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if synthesizer == nil {
		return nil, ErrSynthesizerRequired
	}
	if questions == nil {
		return nil, ErrGeneratorRequired
	}

	o := &Orchestrator{
		engine:        engine,
		synthesizer:   synthesizer,
		questions:     questions,
		relevant:      advisor.CandidatesRelevant,
		maxIterations: defaultMaxIterations,
		threshold:     defaultThreshold,
		logger:        slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Start validates the product description and runs the first turn of a new
// session. The returned Turn either asks a question or, rarely, already
// carries a terminal result.
func (o *Orchestrator) Start(ctx context.Context, description string) (*Session, *Turn, error) {
	if err := core.ValidateDescription(description); err != nil {
		return nil, nil, err
	}

	session := &Session{
		orch: o,
		state: &core.ConversationState{
			ProductDescription: description,
		},
	}
	turn, err := session.runTurn(ctx)
	if err != nil {
		return nil, nil, err
	}
	return session, turn, nil
}

// Run drives a whole session to completion, calling answerFn for every
// question. It is the non-interactive counterpart of Start/Answer for
// callers that can answer synchronously.
func (o *Orchestrator) Run(ctx context.Context, description string, answerFn func(question string, options []string) (string, error)) (*core.Result, error) {
	session, turn, err := o.Start(ctx, description)
	if err != nil {
		return nil, err
	}

	for !turn.Done {
		answer, err := answerFn(turn.Outcome.Text, turn.Outcome.Options)
		if err != nil {
			return nil, err
		}
		turn, err = session.Answer(ctx, answer)
		if err != nil {
			return nil, err
		}
	}
	return session.Result()
}
