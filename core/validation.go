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
)

// ValidateMessageRecord validates a MessageRecord according to domain rules.
//
// Validation rules:
//   - Full must be a non-empty range
//   - Subject and From must be non-inverted and lie inside Full
//   - Datetime must be set
//   - Every body range must lie inside Full
//   - No two body ranges may overlap
//
// NOT validated:
//   - Content type and transfer encoding values (decoded leniently at read time)
func ValidateMessageRecord(record *MessageRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.Full.Len() <= 0 {
		return fmt.Errorf("%w: full %w", ErrInvalidRecord, ErrEmptyRange)
	}

	if err := validateHeaderRange("subject", record.Full, record.Subject); err != nil {
		return err
	}
	if err := validateHeaderRange("from", record.Full, record.From); err != nil {
		return err
	}

	if record.Datetime.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrMissingDatetime)
	}

	for i, body := range record.Bodies {
		if body.Content.Len() < 0 {
			return fmt.Errorf("%w: body %d %w", ErrInvalidRecord, i, ErrEmptyRange)
		}
		if !record.Full.Contains(body.Content) {
			return fmt.Errorf("%w: body %d %w", ErrInvalidRecord, i, ErrRangeOutsideMessage)
		}
		for j := i + 1; j < len(record.Bodies); j++ {
			if body.Content.Overlaps(record.Bodies[j].Content) {
				return fmt.Errorf("%w: bodies %d and %d: %w", ErrInvalidRecord, i, j, ErrOverlappingBodies)
			}
		}
	}

	return nil
}

func validateHeaderRange(name string, full, r ByteRange) error {
	if r.Len() < 0 {
		return fmt.Errorf("%w: %s %w", ErrInvalidRecord, name, ErrEmptyRange)
	}
	if !full.Contains(r) {
		return fmt.Errorf("%w: %s %w", ErrInvalidRecord, name, ErrRangeOutsideMessage)
	}
	return nil
}
