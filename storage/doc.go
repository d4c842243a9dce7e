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


// Package storage defines the repository interfaces for archived messages and
// cached embeddings.
//
// MessageRepository is implemented by the mboxfile subpackage, which keeps the
// archive memory-mapped and decodes messages on demand. EmbeddingRepository is
// implemented by the badger subpackage and backs the optional embedding cache.
//
// All repositories return the sentinel errors defined in this package, wrapped
// with context where useful. Check them with errors.Is.
package storage
