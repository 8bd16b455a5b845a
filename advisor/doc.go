// Package advisor holds the LLM-backed decision points of the classifier:
// search query synthesis and question/conclusion generation.
//
// Both are modeled as narrow, fallible contracts over ai.TextGenerator so
// tests can swap in deterministic stubs. Model output is never trusted:
// the synthesizer falls back to a rule-based query when the model fails or
// returns nothing, and the question generator guards against truncated
// output, duplicate questions, and conclusions over irrelevant candidates.
// A failed model call degrades quality for one turn; it never fails the
// classification session.
package advisor
