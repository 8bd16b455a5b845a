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

import "errors"

var (
	// ErrStoreRequired is returned when an embedding store is not provided.
	ErrStoreRequired = errors.New("embedding store required")

	// ErrLeavesRequired is returned when no taxonomy leaves are provided.
	ErrLeavesRequired = errors.New("taxonomy leaves required")

	// ErrLeafCountMismatch is returned when the embedding matrix row count
	// does not match the leaf list.
	ErrLeafCountMismatch = errors.New("embedding matrix row count does not match leaf count")
)
