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
	"time"
)

// ValidateMemoryRecord validates a MemoryRecord according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Role must be valid (User or Assistant)
//   - Timestamp must not be in the future
//
// NOT validated:
//   - IndexPos (NoIndexPos is valid until the record is embedded)
//   - Id (opaque; any non-conflicting value is acceptable)
func ValidateMemoryRecord(record *MemoryRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidMemoryRecord)
	}

	if record.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMemoryRecord, ErrEmptyText)
	}

	if err := ValidateRole(record.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMemoryRecord, err)
	}

	if !IsValidTimestamp(record.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidMemoryRecord, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
