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


// Package search provides vector similarity search over message embeddings.
//
// VectorIndex is the capability the mailbox service depends on. MemoryCosine
// is an exact in-memory implementation: every query scores all indexed
// vectors by cosine similarity and keeps the best k in a bounded min-heap.
package search
