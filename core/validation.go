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

import (
	"fmt"
	"strings"
	"time"
)

// ValidateDescription checks that a product description is usable as the
// seed of a classification session.
func ValidateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// ValidatePrecedent validates a Precedent according to domain rules.
//
// Validation rules:
//   - ProductDescription must not be empty
//   - Code must not be empty
//   - CreatedAt must not be in the future
//
// NOT validated:
//   - Score (0 is a valid low-confidence score)
//   - QAHistory (a zero-question classification is legitimate)
//   - ID (0 means not yet assigned)
func ValidatePrecedent(precedent *Precedent) error {
	if precedent == nil {
		return fmt.Errorf("%w: precedent is nil", ErrInvalidPrecedent)
	}

	if precedent.ProductDescription == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPrecedent, ErrEmptyDescription)
	}

	if precedent.Code == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPrecedent, ErrEmptyCode)
	}

	if !IsValidTimestamp(precedent.CreatedAt) {
		return fmt.Errorf("%w: created timestamp is in the future", ErrInvalidPrecedent)
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
