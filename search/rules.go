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


package search

import (
	"strings"

	"github.com/poiesic/tariff/core"
)

// contradictionGroups lists terms treated as mutually exclusive. When the
// query names one member, the remaining members become strong penalty
// triggers on candidates.
var contradictionGroups = [][]string{
	{"oled", "lcd", "led", "plasma", "crt"},
	{"wireless", "wired"},
	{"digital", "analog"},
	{"organic", "synthetic"},
	{"automatic", "manual"},
}

// contradictionOpposites returns the group members opposed to the word, or
// nil when the word belongs to no group.
func contradictionOpposites(word string) []string {
	for _, group := range contradictionGroups {
		for _, member := range group {
			if member == word {
				opposites := make([]string, 0, len(group)-1)
				for _, other := range group {
					if other != word {
						opposites = append(opposites, other)
					}
				}
				return opposites
			}
		}
	}
	return nil
}

// qaRule is one pattern rule deriving a candidate penalty from a past
// question/answer pair. Rules are table-driven so each is independently
// testable and new patterns slot in without touching the scoring loop.
type qaRule struct {
	name    string
	penalty float32
	applies func(qa core.QA, candidate map[string]bool) bool
}

// qaRules holds the contradiction patterns, checked per Q&A pair per
// candidate. Penalties accumulate across pairs.
var qaRules = []qaRule{
	{
		// A flat "no" to a yes/no question vetoes candidates carrying the
		// question's subject terms.
		name:    "negative-answer-veto",
		penalty: 0.8,
		applies: func(qa core.QA, candidate map[string]bool) bool {
			if !isNegativeAnswer(qa.Answer) {
				return false
			}
			if isAlternativeQuestion(qa.Question) {
				return false
			}
			for _, term := range tokenizeAndFilter(qa.Question) {
				if candidateHasTerm(candidate, term) {
					return true
				}
			}
			return false
		},
	},
	{
		// In an "X or Y" question, the alternative the answer did not pick
		// vetoes candidates carrying it.
		name:    "rejected-alternative",
		penalty: 0.7,
		applies: func(qa core.QA, candidate map[string]bool) bool {
			left, right, ok := splitAlternatives(qa.Question)
			if !ok {
				return false
			}
			answer := tokenSet(tokenize(qa.Answer))
			var rejected string
			switch {
			case answer[left] && !answer[right]:
				rejected = right
			case answer[right] && !answer[left]:
				rejected = left
			default:
				return false
			}
			return candidateHasTerm(candidate, rejected)
		},
	},
	{
		name:    "not-bulk",
		penalty: 0.8,
		applies: negatedTermRule("bulk"),
	},
	{
		name:    "not-cider",
		penalty: 0.9,
		applies: negatedTermRule("cider"),
	},
	{
		name:    "not-seasonal",
		penalty: 0.9,
		applies: negatedTermRule("christmas", "festive", "seasonal"),
	},
}

// negatedTermRule builds a rule that fires when the answer negates one of
// the given terms and the candidate carries it.
func negatedTermRule(terms ...string) func(core.QA, map[string]bool) bool {
	return func(qa core.QA, candidate map[string]bool) bool {
		features := extractFeatures(qa.Answer)
		for _, neg := range features.negative {
			for _, term := range terms {
				if neg == term && candidateHasTerm(candidate, term) {
					return true
				}
			}
		}
		return false
	}
}

// qaContradictionPenalty sums the penalties of every rule that fires for
// any Q&A pair against the candidate's term set.
func qaContradictionPenalty(history []core.QA, candidate map[string]bool) float32 {
	var penalty float32
	for _, qa := range history {
		for _, rule := range qaRules {
			if rule.applies(qa, candidate) {
				penalty += rule.penalty
			}
		}
	}
	return penalty
}

func candidateHasTerm(candidate map[string]bool, term string) bool {
	for _, v := range variants(term) {
		if candidate[v] {
			return true
		}
	}
	return false
}

// isNegativeAnswer matches "no", "no.", "no, it is not" and similar.
func isNegativeAnswer(answer string) bool {
	tokens := tokenize(answer)
	return len(tokens) > 0 && (tokens[0] == "no" || tokens[0] == "nope")
}

func isAlternativeQuestion(question string) bool {
	_, _, ok := splitAlternatives(question)
	return ok
}

// splitAlternatives extracts the two named alternatives of an "X or Y"
// question. Only the significant words adjacent to "or" are taken.
func splitAlternatives(question string) (left, right string, ok bool) {
	tokens := tokenize(strings.TrimSuffix(strings.TrimSpace(question), "?"))
	for i, token := range tokens {
		if token != "or" || i == 0 || i == len(tokens)-1 {
			continue
		}
		l, r := tokens[i-1], tokens[i+1]
		if stopWords[l] || stopWords[r] {
			continue
		}
		return l, r, true
	}
	return "", "", false
}
