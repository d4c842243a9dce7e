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

// Domain validation errors
var (
	// ErrInvalidRecord indicates a MessageRecord failed validation.
	ErrInvalidRecord = errors.New("invalid message record")

	// ErrEmptyRange indicates a required range is empty or inverted.
	ErrEmptyRange = errors.New("range is empty or inverted")

	// ErrRangeOutsideMessage indicates a header or body range escapes the message range.
	ErrRangeOutsideMessage = errors.New("range lies outside the message")

	// ErrOverlappingBodies indicates two body parts of one record share bytes.
	ErrOverlappingBodies = errors.New("body parts overlap")

	// ErrMissingDatetime indicates the Date header did not yield a timestamp.
	ErrMissingDatetime = errors.New("datetime is missing")
)
