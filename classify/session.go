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
	"strings"

	"github.com/google/uuid"

	"github.com/poiesic/tariff/core"
)

// Turn is what one pass through the loop produced. When Done is false the
// Outcome carries the question to put to the user; the session expects an
// Answer call next. When Done is true the session has terminated and
// Result() is available.
type Turn struct {
	Iteration  int
	Query      string
	Candidates []core.Candidate
	Outcome    core.Outcome
	Converged  bool
	Done       bool
}

// Session is one in-flight classification. It owns its ConversationState;
// callers interact only through Answer and Result. Sessions are not safe
// for concurrent use.
type Session struct {
	id    uuid.UUID
	orch  *Orchestrator
	state *core.ConversationState

	prevTop3        []string
	trail           []core.TrailEntry
	questionPending bool

	done   bool
	result *core.Result
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	if s.id == uuid.Nil {
		s.id = uuid.New()
	}
	return s.id
}

// State exposes a read-only view of the accumulated conversation.
func (s *Session) State() core.ConversationState {
	return *s.state
}

// Answer records the user's answer to the pending question and runs the
// next turn.
func (s *Session) Answer(ctx context.Context, answer string) (*Turn, error) {
	if s.done {
		return nil, ErrSessionDone
	}
	if !s.questionPending {
		return nil, ErrNoQuestionPending
	}

	answer = strings.TrimSpace(answer)
	s.state.QAHistory[len(s.state.QAHistory)-1].Answer = answer
	s.trail[len(s.trail)-1].Answer = answer
	s.questionPending = false

	return s.runTurn(ctx)
}

// Result returns the terminal outcome. It fails until the session is done.
func (s *Session) Result() (*core.Result, error) {
	if !s.done {
		return nil, ErrSessionActive
	}
	return s.result, nil
}

// runTurn executes one iteration: synthesize a query, search, converge or
// ask. It appends a trail entry for the iteration and leaves the session
// either done or with a question pending.
func (s *Session) runTurn(ctx context.Context) (*Turn, error) {
	o := s.orch
	s.state.Iteration++

	prev := s.state.CurrentCandidates
	relevant := o.candidatesRelevant(s.state.ProductDescription, prev)

	query := o.synthesizer.Synthesize(ctx, s.state, prev, relevant)
	candidates, err := o.engine.Search(ctx, query, o.threshold, s.state.QAHistory)
	if err != nil {
		return nil, err
	}

	// One retry with a fresh query when the results drifted off-topic.
	if len(candidates) > 0 && !o.candidatesRelevant(s.state.ProductDescription, candidates) {
		o.logger.Info("search results irrelevant, resynthesizing query",
			"session", s.ID(), "iteration", s.state.Iteration)
		query = o.synthesizer.Synthesize(ctx, s.state, candidates, false)
		candidates, err = o.engine.Search(ctx, query, o.threshold, s.state.QAHistory)
		if err != nil {
			return nil, err
		}
	}

	s.state.CurrentCandidates = candidates
	s.trail = append(s.trail, core.TrailEntry{Query: query, Candidates: candidates})

	if len(candidates) == 0 {
		o.logger.Warn("no candidates survived the threshold",
			"session", s.ID(), "query", query)
		s.finalize("", core.StatusNoResult, "")
		return &Turn{
			Iteration:  s.state.Iteration,
			Query:      query,
			Candidates: candidates,
			Done:       true,
		}, nil
	}

	if s.converged() {
		o.logger.Info("session converged",
			"session", s.ID(), "iteration", s.state.Iteration,
			"top_code", candidates[0].Code, "top_score", candidates[0].SimilarityScore)
		s.finalizeFromCandidates("")
		return &Turn{
			Iteration:  s.state.Iteration,
			Query:      query,
			Candidates: candidates,
			Converged:  true,
			Done:       true,
		}, nil
	}
	s.rememberTop3(candidates)

	outcome := o.questions.GenerateNext(ctx, s.state)
	if outcome.Type == core.OutcomeConclusion {
		s.finalizeFromCandidates(outcome.Text)
		return &Turn{
			Iteration:  s.state.Iteration,
			Query:      query,
			Candidates: candidates,
			Outcome:    outcome,
			Done:       true,
		}, nil
	}

	s.state.QAHistory = append(s.state.QAHistory, core.QA{Question: outcome.Text})
	s.trail[len(s.trail)-1].Question = outcome.Text
	s.questionPending = true

	return &Turn{
		Iteration:  s.state.Iteration,
		Query:      query,
		Candidates: candidates,
		Outcome:    outcome,
	}, nil
}

// converged applies the termination rules for the current candidate set.
// The iteration bound always terminates; below it the candidate count and
// score distribution decide, and a stable top three across consecutive
// turns ends a well-questioned session early.
func (s *Session) converged() bool {
	state := s.state
	candidates := state.CurrentCandidates

	if state.Iteration >= s.orch.maxIterations {
		return true
	}
	if state.Iteration < 2 {
		return false
	}

	switch {
	case len(candidates) == 1:
		return candidates[0].SimilarityScore > 0.9
	case len(candidates) == 2:
		top, second := candidates[0].SimilarityScore, candidates[1].SimilarityScore
		return top > 0.85 && top-second > 0.2
	}

	answered := 0
	for _, qa := range state.QAHistory {
		if qa.Answer != "" {
			answered++
		}
	}
	if answered >= 3 && candidates[0].SimilarityScore > 0.75 && s.top3Stable(candidates) {
		return true
	}
	return false
}

// top3Stable reports whether the three highest-ranked codes match the
// previous turn's exactly, in order.
func (s *Session) top3Stable(candidates []core.Candidate) bool {
	if len(s.prevTop3) < 3 || len(candidates) < 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if candidates[i].Code != s.prevTop3[i] {
			return false
		}
	}
	return true
}

func (s *Session) rememberTop3(candidates []core.Candidate) {
	n := len(candidates)
	if n > 3 {
		n = 3
	}
	s.prevTop3 = s.prevTop3[:0]
	for _, c := range candidates[:n] {
		s.prevTop3 = append(s.prevTop3, c.Code)
	}
}

// finalizeFromCandidates commits to one of the current candidates; an empty
// selectedCode means the highest-ranked one. The confidence status depends
// only on the committed candidate's score.
func (s *Session) finalizeFromCandidates(conclusion string) {
	best := s.state.CurrentCandidates[0]
	status := core.StatusNeedsReview
	if best.SimilarityScore > highConfidenceScore {
		status = core.StatusClassified
	}
	s.finalize(best.Code, status, conclusion)
	s.result.Description = best.Description
	s.result.Score = best.SimilarityScore
}

func (s *Session) finalize(code string, status core.ClassificationStatus, conclusion string) {
	s.done = true
	s.result = &core.Result{
		Code:       code,
		Status:     status,
		Conclusion: conclusion,
		Trail:      s.trail,
	}
}

// Finalize ends the session early on a caller-selected candidate code. It
// allows an operator to commit to a code the loop has already surfaced
// without answering further questions.
func (s *Session) Finalize(selectedCode string) (*core.Result, error) {
	if s.done {
		return nil, ErrSessionDone
	}
	for _, c := range s.state.CurrentCandidates {
		if c.Code == selectedCode {
			status := core.StatusNeedsReview
			if c.SimilarityScore > highConfidenceScore {
				status = core.StatusClassified
			}
			s.finalize(c.Code, status, "")
			s.result.Description = c.Description
			s.result.Score = c.SimilarityScore
			return s.result, nil
		}
	}
	return nil, core.ErrNoCandidates
}

// Precedent converts a terminated session into its durable record.
func (s *Session) Precedent() (*core.Precedent, error) {
	result, err := s.Result()
	if err != nil {
		return nil, err
	}
	if result.Status == core.StatusNoResult {
		return nil, core.ErrNoCandidates
	}
	return core.NewPrecedent(
		s.state.ProductDescription,
		result.Code,
		result.Description,
		result.Score,
		s.state.Iteration,
		s.state.QAHistory,
	), nil
}

func (o *Orchestrator) candidatesRelevant(description string, candidates []core.Candidate) bool {
	if len(candidates) == 0 {
		return false
	}
	if o.relevant == nil {
		return true
	}
	return o.relevant(description, candidates)
}
