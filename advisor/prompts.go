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
	"fmt"
	"strings"

	"github.com/poiesic/tariff/core"
)

func qaContext(history []core.QA) string {
	if len(history) == 0 {
		return "None"
	}
	var b strings.Builder
	for i, qa := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s", qa.Question, qa.Answer)
	}
	return b.String()
}

// buildQueryPrompt asks the model for a single optimized search query.
func buildQueryPrompt(state *core.ConversationState, candidates []core.Candidate, relevant bool) string {
	var candidatesContext string
	if len(candidates) > 0 {
		var b strings.Builder
		max := len(candidates)
		if max > 5 {
			max = 5
		}
		for _, c := range candidates[:max] {
			fmt.Fprintf(&b, "- %s: %s\n", c.Code, c.Description)
		}
		verdict := "RELEVANT"
		if !relevant {
			verdict = "COMPLETELY IRRELEVANT"
		}
		candidatesContext = fmt.Sprintf("\nCURRENT SEARCH RESULTS:\n%sThese results appear to be %s to the product.\n", b.String(), verdict)
	}

	return fmt.Sprintf(`You are controlling the semantic search query for tariff code classification.

ORIGINAL PRODUCT: %s

PREVIOUS Q&A:
%s
%s
Your task: Generate the BEST semantic search query that will find relevant tariff codes for this product.

CRITICAL RULES:
1. Focus on the ACTUAL PRODUCT, not packaging/containers
2. Use professional trade/customs terminology
3. If previous results were irrelevant, completely rewrite the query
4. Ignore user gibberish - extract the real product intent
5. For beverages in containers, focus on the beverage type

Return ONLY the semantic search query text, nothing else.`,
		state.ProductDescription, qaContext(state.QAHistory), candidatesContext)
}

// buildQuestionPrompt asks the model to either pose one discriminating
// question or commit to a conclusion, in a fixed parseable format.
func buildQuestionPrompt(state *core.ConversationState) string {
	var candidatesText strings.Builder
	max := len(state.CurrentCandidates)
	if max > 10 {
		max = 10
	}
	for _, c := range state.CurrentCandidates[:max] {
		fmt.Fprintf(&candidatesText, "- %s: %s (similarity: %.2f)\n", c.Code, c.Description, c.SimilarityScore)
	}

	return fmt.Sprintf(`You are helping classify a product into the correct HS/CN tariff code.

ORIGINAL PRODUCT DESCRIPTION: %s

PREVIOUS QUESTIONS AND ANSWERS:
%s

CURRENT TOP CODE CANDIDATES:
%s
Your task: Analyze these candidates and determine the best way to help the user distinguish between them.

Think through this step by step:
1. Look at the original product description - what is already clearly specified?
2. Examine the candidates - what are the key differences between them (material, processing, function, packaging, origin, size)?
3. Consider previous Q&A - what has already been established?
4. Decide: Is there a meaningful question that would help narrow down the candidates, or is the answer already obvious from the description?

Never ask about classification codes, chapters, or tariffs themselves.

You can think freely and provide analysis, but you MUST end your response in one of these two formats:

If a question would help:
QUESTION: [Your specific question here]
OPTIONS: [optional comma-separated answer choices]

If no question is needed because the answer is obvious:
CONCLUSION: Based on [brief reason], the most likely codes are [list 2-3 specific codes]

Examples:
QUESTION: What is the sugar content percentage in your preserved mandarins?
CONCLUSION: Based on "canned" in the description, codes 2008 30 55 and 2008 30 75 are most relevant as they cover preserved mandarins.`,
		state.ProductDescription, qaContext(state.QAHistory), candidatesText.String())
}
