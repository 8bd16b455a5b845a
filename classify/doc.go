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


// Package classify drives the iterative tariff classification loop.
//
// Each turn the orchestrator synthesizes a search query from everything the
// session has learned, scores it against the taxonomy, and then either
// terminates (converged, exhausted, or no candidates left) or asks the
// caller one discriminating question. Answers feed back into the next
// turn's query.
//
// A Session terminates in one of three statuses: StatusClassified when the
// committed candidate scores above the confidence bar, StatusNeedsReview
// when it does not, and StatusNoResult when no candidate survived the
// threshold.
package classify
