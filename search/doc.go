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


// Package search scores taxonomy leaves against a product query.
//
// The Engine combines several signals into one final score per leaf:
//   - Cosine similarity between the query vector and the leaf embedding
//   - Keyword boosts for query terms found in the leaf label or path
//   - Penalties for negated query terms found in the candidate
//   - Penalties for technology-contradiction pairs (oled vs lcd, etc.)
//   - Penalties derived from the conversation history, so answers the
//     user already gave can veto contradicting candidates
//
// An adaptive threshold raises the cut-off when an overly generic query
// matches too much of the taxonomy, and result pruning keeps the candidate
// set small enough for the question generator to discriminate over.
//
// Search is deterministic for identical inputs and embedding state. An
// unavailable embedding backend degrades to an empty result rather than
// an error.
package search
