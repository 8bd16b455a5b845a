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


package core

import "errors"

// Domain error taxonomy. Startup-time errors (ErrDataLoad with no usable rows,
// ErrCacheMiss in cached-only mode) are fatal; per-turn errors degrade to
// fallbacks and are never propagated to the session caller.
var (
	// ErrDataLoad indicates a malformed taxonomy source. Individual bad rows
	// are skipped; the error is returned only when nothing usable remains.
	ErrDataLoad = errors.New("taxonomy data load failed")

	// ErrCacheMiss indicates cached-only embedding mode was requested but no
	// cache exists at the resolved location.
	ErrCacheMiss = errors.New("embedding cache not found")

	// ErrModelUnavailable indicates the embedding or generation backend is
	// unreachable. Search degrades to empty results instead of raising it.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrNoCandidates indicates a search produced nothing above threshold
	// after the relevance retry. Terminal for one classification attempt.
	ErrNoCandidates = errors.New("no candidates above threshold")

	// ErrGenerationParse indicates an LLM response did not match the expected
	// question/conclusion shape. Always recovered via fallback text.
	ErrGenerationParse = errors.New("generation response parse failed")

	// ErrInvalidPrecedent indicates a Precedent failed validation.
	ErrInvalidPrecedent = errors.New("invalid precedent")

	// ErrEmptyDescription indicates an empty product description.
	ErrEmptyDescription = errors.New("product description cannot be empty")

	// ErrEmptyCode indicates an empty tariff code on a finalized record.
	ErrEmptyCode = errors.New("tariff code cannot be empty")
)
