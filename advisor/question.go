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
	"strings"

	"github.com/poiesic/tariff/ai"
	"github.com/poiesic/tariff/core"
)

// questionMaxTokens bounds the question/conclusion completion. Generous
// enough for the model's free-form analysis ahead of the structured tail.
const questionMaxTokens = 500

// Fallback prompts for the guard paths.
const (
	fallbackAfterFailure      = "What is the primary intended use or application of your product?"
	fallbackTruncatedQuestion = "Can you provide more specific details about your product to help distinguish between the current candidates?"
	fallbackShortConclusion   = "What additional characteristics of your product can help narrow down the classification?"
	fallbackDuplicate         = "What is the specific characteristic that best describes your product?"
	fallbackForcedQuestion    = "The current candidates may not match your product. Can you describe it in different terms?"
)

// duplicateOverlapRatio is the significant-term overlap above which a new
// question counts as a repeat of an earlier one.
const duplicateOverlapRatio = 0.5

// minQuestionLen and minConclusionLen detect truncated model output.
const (
	minQuestionLen   = 10
	minConclusionLen = 20
)

// QuestionGenerator decides each turn between asking one discriminating
// question and emitting a classification conclusion. Model output is parsed
// defensively; every malformed shape degrades to a usable fallback question
// and a generation failure never reaches the orchestrator.
type QuestionGenerator struct {
	generator ai.TextGenerator
	logger    *slog.Logger
}

// QuestionOption configures a QuestionGenerator.
type QuestionOption func(*QuestionGenerator) error

// WithQuestionLogger sets a custom logger.
// Default is slog.Default().
func WithQuestionLogger(logger *slog.Logger) QuestionOption {
	return func(g *QuestionGenerator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// NewQuestionGenerator creates a question generator backed by the given
// text generation service.
func NewQuestionGenerator(generator ai.TextGenerator, opts ...QuestionOption) (*QuestionGenerator, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	g := &QuestionGenerator{
		generator: generator,
		logger:    slog.Default().With("component", "question-generator"),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// GenerateNext produces the next outcome for the session: a question to put
// to the user, or a conclusion. A conclusion is only ever emitted when the
// current candidates pass the relevance gate; otherwise it is coerced back
// into a question.
func (g *QuestionGenerator) GenerateNext(ctx context.Context, state *core.ConversationState) core.Outcome {
	prompt := buildQuestionPrompt(state)

	response, err := g.generator.Complete(ctx, prompt, questionMaxTokens)
	if err != nil {
		g.logger.Warn("question generation failed, using fallback", "err", err)
		return core.Outcome{Type: core.OutcomeQuestion, Text: fallbackAfterFailure}
	}

	outcome := g.parseResponse(response)

	if outcome.Type == core.OutcomeConclusion {
		if !CandidatesRelevant(state.ProductDescription, state.CurrentCandidates) {
			g.logger.Info("conclusion rejected by relevance gate, forcing question")
			return core.Outcome{Type: core.OutcomeQuestion, Text: fallbackForcedQuestion}
		}
		return outcome
	}

	if g.isDuplicateQuestion(outcome.Text, state.QAHistory) {
		g.logger.Debug("duplicate question discarded", "question", outcome.Text)
		return core.Outcome{Type: core.OutcomeQuestion, Text: fallbackDuplicate}
	}

	return outcome
}

// parseResponse extracts the structured tail of the model response. The
// model may ramble before the QUESTION:/CONCLUSION: marker; everything
// before the marker is discarded.
func (g *QuestionGenerator) parseResponse(response string) core.Outcome {
	response = strings.TrimSpace(response)

	if idx := strings.Index(response, "QUESTION:"); idx >= 0 {
		rest := strings.TrimSpace(response[idx+len("QUESTION:"):])

		var options []string
		if optIdx := strings.Index(rest, "OPTIONS:"); optIdx >= 0 {
			options = parseOptions(rest[optIdx+len("OPTIONS:"):])
			rest = strings.TrimSpace(rest[:optIdx])
		}

		if len(rest) < minQuestionLen || !strings.ContainsAny(string(rest[len(rest)-1]), "?.!") {
			g.logger.Debug("truncated question detected", "question", rest)
			return core.Outcome{Type: core.OutcomeQuestion, Text: fallbackTruncatedQuestion}
		}
		return core.Outcome{Type: core.OutcomeQuestion, Text: rest, Options: options}
	}

	if idx := strings.Index(response, "CONCLUSION:"); idx >= 0 {
		conclusion := strings.TrimSpace(response[idx+len("CONCLUSION:"):])
		if len(conclusion) < minConclusionLen {
			g.logger.Debug("truncated conclusion detected", "conclusion", conclusion)
			return core.Outcome{Type: core.OutcomeQuestion, Text: fallbackShortConclusion}
		}
		return core.Outcome{Type: core.OutcomeConclusion, Text: conclusion}
	}

	// Unstructured response; salvage a question from it.
	g.logger.Warn("model response missing structure marker, salvaging",
		"err", core.ErrGenerationParse)
	return core.Outcome{Type: core.OutcomeQuestion, Text: extractQuestion(response)}
}

func parseOptions(text string) []string {
	// Options live on one line.
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[:nl]
	}
	var options []string
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			options = append(options, part)
		}
	}
	return options
}

// extractQuestion pulls the most question-like sentence out of free text.
func extractQuestion(response string) string {
	// Last sentence ending in a question mark wins.
	sentences := strings.Split(response, ".")
	for i := len(sentences) - 1; i >= 0; i-- {
		sentence := strings.TrimSpace(sentences[i])
		if strings.HasSuffix(sentence, "?") {
			return sentence
		}
	}

	lines := strings.Split(response, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "?") {
			return line
		}
		lower := strings.ToLower(line)
		for _, starter := range []string{"what", "which", "how", "do", "are", "is", "does"} {
			if strings.HasPrefix(lower, starter+" ") {
				return line + "?"
			}
		}
	}

	if len(response) > 0 && len(response) < 200 {
		return response
	}
	return fallbackDuplicate
}

// isDuplicateQuestion compares the new question's significant terms against
// every past question's.
func (g *QuestionGenerator) isDuplicateQuestion(question string, history []core.QA) bool {
	for _, qa := range history {
		if termOverlap(question, qa.Question) > duplicateOverlapRatio {
			return true
		}
	}
	return false
}
