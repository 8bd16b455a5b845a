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

import "errors"

var (
	// ErrEngineRequired indicates that no search engine was provided.
	ErrEngineRequired = errors.New("search engine is required")

	// ErrSynthesizerRequired indicates that no query synthesizer was provided.
	ErrSynthesizerRequired = errors.New("query synthesizer is required")

	// ErrGeneratorRequired indicates that no question generator was provided.
	ErrGeneratorRequired = errors.New("question generator is required")

	// ErrSessionDone indicates an operation on an already terminated session.
	ErrSessionDone = errors.New("classification session already terminated")

	// ErrSessionActive indicates a result was requested before termination.
	ErrSessionActive = errors.New("classification session still active")

	// ErrNoQuestionPending indicates Answer was called without an open question.
	ErrNoQuestionPending = errors.New("no question pending")

	// ErrInvalidMaxIterations indicates a max iteration bound below the
	// minimum of two turns.
	ErrInvalidMaxIterations = errors.New("max iterations must be at least 2")

	// ErrInvalidThreshold indicates a similarity threshold outside (0,1).
	ErrInvalidThreshold = errors.New("similarity threshold must be in (0,1)")
)
