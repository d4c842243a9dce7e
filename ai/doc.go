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


// Package ai provides abstractions for the embedding model used by mboxsearch.
//
// This package defines the Embedder capability (batch text to vectors) and the
// factory and provider types used to construct it. Business logic depends on
// these abstractions rather than on a concrete model client.
//
// # Design Principles
//
//   - Embedder: Generates vector embeddings from text
//   - EmbedderFactory: Builds one embedder per worker so each worker owns its model
//   - AIProvider: Aggregates embedder construction and lifecycle
//
// Embedders fail with ErrModelUnavailable or ErrEncodeFailure. They never
// truncate or reorder a batch; CheckBatch enforces that for callers that
// receive vectors from an external model.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//   - ai/cache: Read-through embedding cache over a storage.EmbeddingRepository
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// INTERFACE types to enforce abstraction. Test utility constructors
// (mock.NewMockEmbedder) return CONCRETE types to enable test assertions and
// behavior injection via the mock's public fields and methods.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithEmbeddingModel("all-minilm"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	orchestrator, err := embedding.New(provider.NewEmbedder, embedding.WithWorkers(4))
package ai
