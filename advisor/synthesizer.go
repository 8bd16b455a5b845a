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


package advisor

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/poiesic/tariff/ai"
	"github.com/poiesic/tariff/core"
)

// queryMaxTokens bounds the synthesized query completion.
const queryMaxTokens = 100

// containerPattern detects "X in a [material] bottle/jar/..." phrasing so
// packaging language can be discounted in favor of the actual product.
var containerPattern = regexp.MustCompile(`\s+in\s+(a|an)\s+(glass|plastic|metal|wooden|ceramic)?\s*(bottle|jar|container|can|box|bag|package)`)

var containerSplit = regexp.MustCompile(`\s+in\s+(a|an)\s+`)

var containerAnswer = regexp.MustCompile(`\b(bottle|glass|container|jar|package|packaging)\b`)

// Synthesizer turns an evolving product description plus Q&A history into a
// single optimized search query. The model drives when reachable; a
// deterministic rule-based fallback guarantees the search step always gets
// a usable query.
type Synthesizer struct {
	generator ai.TextGenerator
	logger    *slog.Logger
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer) error

// WithSynthesizerLogger sets a custom logger.
// Default is slog.Default().
func WithSynthesizerLogger(logger *slog.Logger) SynthesizerOption {
	return func(s *Synthesizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSynthesizer creates a query synthesizer. The generator may be nil, in
// which case only the rule-based path is used.
func NewSynthesizer(generator ai.TextGenerator, opts ...SynthesizerOption) (*Synthesizer, error) {
	s := &Synthesizer{
		generator: generator,
		logger:    slog.Default().With("component", "query-synthesizer"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Synthesize produces the search query for the current turn. The candidate
// set from the previous search and its relevance verdict steer the model
// toward a full rewrite when results were off-target. Never returns an
// empty string.
func (s *Synthesizer) Synthesize(ctx context.Context, state *core.ConversationState, candidates []core.Candidate, relevant bool) string {
	if s.generator != nil {
		prompt := buildQueryPrompt(state, candidates, relevant)
		completion, err := s.generator.Complete(ctx, prompt, queryMaxTokens)
		if err == nil {
			query := strings.TrimSpace(strings.Trim(strings.TrimSpace(completion), `"`))
			if query != "" {
				s.logger.Debug("synthesized query", "query", query)
				return query
			}
			s.logger.Warn("generator returned empty query, using fallback")
		} else {
			s.logger.Warn("query synthesis failed, using fallback", "err", err)
		}
	}

	return s.FallbackQuery(state)
}

// FallbackQuery builds a query without the model: strip container phrasing
// down to the core product and merge in short answers that add new terms.
func (s *Synthesizer) FallbackQuery(state *core.ConversationState) string {
	original := strings.ToLower(strings.TrimSpace(state.ProductDescription))

	if containerPattern.MatchString(original) {
		product := strings.TrimSpace(containerSplit.Split(original, 2)[0])

		// Answers about the product, not its packaging.
		var context []string
		for _, qa := range state.QAHistory {
			answer := strings.ToLower(strings.TrimSpace(qa.Answer))
			if len(answer) <= 1 || containerAnswer.MatchString(answer) {
				continue
			}
			if !strings.Contains(product, answer) {
				context = append(context, answer)
			}
		}
		if len(context) > 2 {
			context = context[:2]
		}

		query := strings.TrimSpace(product + " " + strings.Join(context, " "))
		if query != "" {
			s.logger.Debug("container pattern stripped", "query", query)
			return query
		}
	}

	return s.contextQuery(state)
}

// contextQuery appends answers that contribute new terms to the original
// description. Long answers and pure repetition are skipped.
func (s *Synthesizer) contextQuery(state *core.ConversationState) string {
	seen := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(state.ProductDescription)) {
		seen[word] = true
	}

	parts := []string{state.ProductDescription}
	for _, qa := range state.QAHistory {
		answer := strings.TrimSpace(qa.Answer)
		if len(answer) <= 1 || len(strings.Fields(answer)) > 10 {
			continue
		}
		hasNew := false
		words := strings.Fields(strings.ToLower(answer))
		for _, word := range words {
			if !seen[word] {
				hasNew = true
				break
			}
		}
		if !hasNew {
			continue
		}
		parts = append(parts, answer)
		for _, word := range words {
			seen[word] = true
		}
	}

	query := strings.TrimSpace(strings.Join(parts, " "))
	if query == "" {
		return state.ProductDescription
	}
	return query
}
