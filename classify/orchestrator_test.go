package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/tariff/core"
)

type stubEngine struct {
	searchFunc func(ctx context.Context, query string, threshold float32, history []core.QA) ([]core.Candidate, error)
	calls      int
	queries    []string
}

func (e *stubEngine) Search(ctx context.Context, query string, threshold float32, history []core.QA) ([]core.Candidate, error) {
	e.calls++
	e.queries = append(e.queries, query)
	return e.searchFunc(ctx, query, threshold, history)
}

func fixedEngine(candidates ...core.Candidate) *stubEngine {
	return &stubEngine{
		searchFunc: func(ctx context.Context, query string, threshold float32, history []core.QA) ([]core.Candidate, error) {
			return candidates, nil
		},
	}
}

type stubSynthesizer struct {
	calls int
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, state *core.ConversationState, candidates []core.Candidate, relevant bool) string {
	s.calls++
	return state.ProductDescription
}

type stubQuestions struct {
	outcomes []core.Outcome
	next     int
}

func (q *stubQuestions) GenerateNext(ctx context.Context, state *core.ConversationState) core.Outcome {
	if len(q.outcomes) == 0 {
		return core.Outcome{Type: core.OutcomeQuestion, Text: "Is the product carbonated?"}
	}
	outcome := q.outcomes[q.next]
	if q.next < len(q.outcomes)-1 {
		q.next++
	}
	return outcome
}

func alwaysAsk() *stubQuestions {
	return &stubQuestions{}
}

func cands(scores ...float32) []core.Candidate {
	out := make([]core.Candidate, len(scores))
	for i, score := range scores {
		out[i] = core.Candidate{
			Code:            fmt.Sprintf("220%d 10 00", i),
			Description:     fmt.Sprintf("Beverages, subheading %d", i),
			SimilarityScore: score,
		}
	}
	return out
}

func newTestOrchestrator(t *testing.T, engine SearchEngine, questions QuestionGenerator, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithRelevanceFunc(func(string, []core.Candidate) bool { return true })}, opts...)
	o, err := NewOrchestrator(engine, &stubSynthesizer{}, questions, opts...)
	require.NoError(t, err)
	return o
}

func TestNewOrchestratorValidation(t *testing.T) {
	engine := fixedEngine(cands(0.7)...)

	_, err := NewOrchestrator(nil, &stubSynthesizer{}, alwaysAsk())
	assert.ErrorIs(t, err, ErrEngineRequired)

	_, err = NewOrchestrator(engine, nil, alwaysAsk())
	assert.ErrorIs(t, err, ErrSynthesizerRequired)

	_, err = NewOrchestrator(engine, &stubSynthesizer{}, nil)
	assert.ErrorIs(t, err, ErrGeneratorRequired)

	_, err = NewOrchestrator(engine, &stubSynthesizer{}, alwaysAsk(), WithMaxIterations(1))
	assert.ErrorIs(t, err, ErrInvalidMaxIterations)

	_, err = NewOrchestrator(engine, &stubSynthesizer{}, alwaysAsk(), WithThreshold(1.5))
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestStartRejectsEmptyDescription(t *testing.T) {
	o := newTestOrchestrator(t, fixedEngine(cands(0.7)...), alwaysAsk())

	_, _, err := o.Start(context.Background(), "   ")
	assert.ErrorIs(t, err, core.ErrEmptyDescription)
}

func TestStartAsksQuestion(t *testing.T) {
	o := newTestOrchestrator(t, fixedEngine(cands(0.8, 0.7, 0.65)...), alwaysAsk())

	session, turn, err := o.Start(context.Background(), "sparkling apple juice")
	require.NoError(t, err)

	assert.False(t, turn.Done)
	assert.Equal(t, 1, turn.Iteration)
	assert.Equal(t, core.OutcomeQuestion, turn.Outcome.Type)
	assert.Len(t, turn.Candidates, 3)

	state := session.State()
	require.Len(t, state.QAHistory, 1)
	assert.Equal(t, turn.Outcome.Text, state.QAHistory[0].Question)
	assert.Empty(t, state.QAHistory[0].Answer)

	_, err = session.Result()
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestNeverConvergesOnFirstIteration(t *testing.T) {
	// A single 0.95 candidate converges immediately once two iterations
	// have run, but never on the first.
	o := newTestOrchestrator(t, fixedEngine(cands(0.95)...), alwaysAsk())

	session, turn, err := o.Start(context.Background(), "industrial diamond drill bit")
	require.NoError(t, err)
	assert.False(t, turn.Done)

	turn, err = session.Answer(context.Background(), "yes")
	require.NoError(t, err)
	assert.True(t, turn.Converged)
	assert.True(t, turn.Done)

	result, err := session.Result()
	require.NoError(t, err)
	assert.Equal(t, core.StatusClassified, result.Status)
	assert.Equal(t, "2200 10 00", result.Code)
	assert.InDelta(t, 0.95, result.Score, 1e-6)
}

func TestTwoCandidateGap(t *testing.T) {
	engine := &stubEngine{}
	engine.searchFunc = func(ctx context.Context, query string, threshold float32, history []core.QA) ([]core.Candidate, error) {
		if engine.calls <= 2 {
			return cands(0.83, 0.80), nil
		}
		return cands(0.90, 0.65), nil
	}
	o := newTestOrchestrator(t, engine, alwaysAsk())

	session, turn, err := o.Start(context.Background(), "stainless steel kettle")
	require.NoError(t, err)

	// Iteration 2: top 0.83 is under the 0.85 bar, keep asking.
	turn, err = session.Answer(context.Background(), "electric")
	require.NoError(t, err)
	assert.False(t, turn.Done)

	// Iteration 3: 0.90 with a 0.25 gap terminates.
	turn, err = session.Answer(context.Background(), "2 litre capacity")
	require.NoError(t, err)
	assert.True(t, turn.Converged)

	result, err := session.Result()
	require.NoError(t, err)
	assert.Equal(t, core.StatusClassified, result.Status)
}

func TestStableTopThreeConverges(t *testing.T) {
	o := newTestOrchestrator(t, fixedEngine(cands(0.78, 0.77, 0.76, 0.70)...), alwaysAsk())

	session, turn, err := o.Start(context.Background(), "cotton t-shirt")
	require.NoError(t, err)

	answers := []string{"crew neck", "short sleeve", "printed"}
	for i, answer := range answers {
		require.False(t, turn.Done, "terminated early on answer %d", i)
		turn, err = session.Answer(context.Background(), answer)
		require.NoError(t, err)
	}

	// Three answered questions, identical top three across turns, top
	// score above 0.75.
	assert.True(t, turn.Converged)
	assert.Equal(t, 4, turn.Iteration)

	result, err := session.Result()
	require.NoError(t, err)
	assert.Equal(t, core.StatusNeedsReview, result.Status)
	assert.Len(t, result.Trail, 4)
}

func TestUnstableTopThreeKeepsAsking(t *testing.T) {
	engine := &stubEngine{}
	engine.searchFunc = func(ctx context.Context, query string, threshold float32, history []core.QA) ([]core.Candidate, error) {
		// Rotate the code ranking every turn so the top three never repeat.
		offset := engine.calls % 3
		out := make([]core.Candidate, 3)
		for i := range out {
			out[i] = core.Candidate{
				Code:            fmt.Sprintf("61%02d 00 00", (i+offset)%3),
				Description:     "T-shirts, knitted or crocheted",
				SimilarityScore: 0.78 - float32(i)*0.01,
			}
		}
		return out, nil
	}
	o := newTestOrchestrator(t, engine, alwaysAsk())

	session, turn, err := o.Start(context.Background(), "cotton t-shirt")
	require.NoError(t, err)

	for i := 0; !turn.Done; i++ {
		turn, err = session.Answer(context.Background(), fmt.Sprintf("answer %d", i))
		require.NoError(t, err)
	}

	// Only the iteration bound ends it.
	assert.Equal(t, defaultMaxIterations, turn.Iteration)
	assert.True(t, turn.Converged)
}

func TestMaxIterationsAlwaysTerminates(t *testing.T) {
	o := newTestOrchestrator(t, fixedEngine(cands(0.3, 0.25)...), alwaysAsk(), WithMaxIterations(3))

	session, turn, err := o.Start(context.Background(), "unidentifiable gadget")
	require.NoError(t, err)

	turn, err = session.Answer(context.Background(), "no idea")
	require.NoError(t, err)
	assert.False(t, turn.Done)

	turn, err = session.Answer(context.Background(), "still no idea")
	require.NoError(t, err)
	assert.True(t, turn.Done)
	assert.Equal(t, 3, turn.Iteration)

	result, err := session.Result()
	require.NoError(t, err)
	assert.Equal(t, core.StatusNeedsReview, result.Status)
}

func TestNoCandidatesTerminatesWithNoResult(t *testing.T) {
	o := newTestOrchestrator(t, fixedEngine(), alwaysAsk())

	session, turn, err := o.Start(context.Background(), "perpetual motion machine")
	require.NoError(t, err)

	assert.True(t, turn.Done)
	assert.False(t, turn.Converged)

	result, err := session.Result()
	require.NoError(t, err)
	assert.Equal(t, core.StatusNoResult, result.Status)
	assert.Empty(t, result.Code)

	_, err = session.Precedent()
	assert.ErrorIs(t, err, core.ErrNoCandidates)
}

func TestConclusionTerminates(t *testing.T) {
	questions := &stubQuestions{outcomes: []core.Outcome{
		{Type: core.OutcomeConclusion, Text: "Code 2200 10 00 fits best given the carbonation."},
	}}
	o := newTestOrchestrator(t, fixedEngine(cands(0.86, 0.60)...), questions)

	session, turn, err := o.Start(context.Background(), "sparkling apple juice")
	require.NoError(t, err)

	assert.True(t, turn.Done)
	assert.False(t, turn.Converged)

	result, err := session.Result()
	require.NoError(t, err)
	assert.Equal(t, core.StatusClassified, result.Status)
	assert.Equal(t, "2200 10 00", result.Code)
	assert.Contains(t, result.Conclusion, "carbonation")
}

func TestIrrelevantResultsTriggerOneRetry(t *testing.T) {
	offTopic := []core.Candidate{{Code: "8528 72", Description: "Television receivers", SimilarityScore: 0.7}}
	onTopic := cands(0.75, 0.7)

	engine := &stubEngine{}
	engine.searchFunc = func(ctx context.Context, query string, threshold float32, history []core.QA) ([]core.Candidate, error) {
		if engine.calls == 1 {
			return offTopic, nil
		}
		return onTopic, nil
	}

	synthesizer := &stubSynthesizer{}
	questions := alwaysAsk()
	o, err := NewOrchestrator(engine, synthesizer, questions,
		WithRelevanceFunc(func(description string, candidates []core.Candidate) bool {
			return candidates[0].Code != "8528 72"
		}))
	require.NoError(t, err)

	session, turn, err := o.Start(context.Background(), "sparkling apple juice")
	require.NoError(t, err)

	assert.Equal(t, 2, engine.calls)
	assert.Equal(t, 2, synthesizer.calls)
	assert.Equal(t, onTopic, turn.Candidates)
	assert.Equal(t, onTopic, session.State().CurrentCandidates)
}

func TestSearchErrorPropagates(t *testing.T) {
	searchErr := errors.New("embedding backend down")
	engine := &stubEngine{
		searchFunc: func(ctx context.Context, query string, threshold float32, history []core.QA) ([]core.Candidate, error) {
			return nil, searchErr
		},
	}
	o := newTestOrchestrator(t, engine, alwaysAsk())

	_, _, err := o.Start(context.Background(), "sparkling apple juice")
	assert.ErrorIs(t, err, searchErr)
}

func TestAnswerAfterTermination(t *testing.T) {
	o := newTestOrchestrator(t, fixedEngine(), alwaysAsk())

	session, turn, err := o.Start(context.Background(), "perpetual motion machine")
	require.NoError(t, err)
	require.True(t, turn.Done)

	_, err = session.Answer(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrSessionDone)
}

func TestFinalizeSelectedCode(t *testing.T) {
	o := newTestOrchestrator(t, fixedEngine(cands(0.82, 0.79, 0.5)...), alwaysAsk())

	session, _, err := o.Start(context.Background(), "sparkling apple juice")
	require.NoError(t, err)

	_, err = session.Finalize("9999 99 99")
	assert.ErrorIs(t, err, core.ErrNoCandidates)

	result, err := session.Finalize("2201 10 00")
	require.NoError(t, err)
	assert.Equal(t, "2201 10 00", result.Code)
	assert.Equal(t, core.StatusNeedsReview, result.Status)
	assert.InDelta(t, 0.79, result.Score, 1e-6)

	_, err = session.Finalize("2201 10 00")
	assert.ErrorIs(t, err, ErrSessionDone)
}

func TestPrecedentFromSession(t *testing.T) {
	o := newTestOrchestrator(t, fixedEngine(cands(0.95)...), alwaysAsk())

	session, _, err := o.Start(context.Background(), "industrial diamond drill bit")
	require.NoError(t, err)
	turn, err := session.Answer(context.Background(), "tungsten carbide tip")
	require.NoError(t, err)
	require.True(t, turn.Done)

	precedent, err := session.Precedent()
	require.NoError(t, err)
	assert.NotZero(t, precedent.Id)
	assert.Equal(t, "industrial diamond drill bit", precedent.ProductDescription)
	assert.Equal(t, "2200 10 00", precedent.Code)
	assert.Equal(t, 2, precedent.Iterations)
	require.Len(t, precedent.QAHistory, 1)
	assert.Equal(t, "tungsten carbide tip", precedent.QAHistory[0].Answer)
	assert.NoError(t, core.ValidatePrecedent(precedent))
}

func TestRunDrivesSessionToCompletion(t *testing.T) {
	o := newTestOrchestrator(t, fixedEngine(cands(0.95)...), alwaysAsk())

	asked := 0
	result, err := o.Run(context.Background(), "industrial diamond drill bit",
		func(question string, options []string) (string, error) {
			asked++
			return "yes", nil
		})
	require.NoError(t, err)

	assert.Equal(t, 1, asked)
	assert.Equal(t, core.StatusClassified, result.Status)
	assert.Equal(t, "2200 10 00", result.Code)
}

func TestRunStopsOnAnswerError(t *testing.T) {
	o := newTestOrchestrator(t, fixedEngine(cands(0.7, 0.6)...), alwaysAsk())

	wantErr := errors.New("caller gave up")
	_, err := o.Run(context.Background(), "mystery item",
		func(question string, options []string) (string, error) {
			return "", wantErr
		})
	assert.ErrorIs(t, err, wantErr)
}
