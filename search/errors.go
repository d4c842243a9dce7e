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
	// ErrEmptyVector is returned when indexing or searching with a zero-length vector.
	ErrEmptyVector = errors.New("vector is empty")

	// ErrDimensionMismatch is returned when a vector's length differs from the
	// dimension fixed by the first indexed vector.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
