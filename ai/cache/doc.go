// Package cache provides a persistent read-through cache for text embeddings.
//
// Vectors are stored in a storage.EmbeddingRepository, normally the BadgerDB
// implementation in storage/badger, so re-indexing an unchanged archive does
// not re-run the model:
//
//	backend, err := badger.OpenBackend(dir, false)
//	repo, err := badger.NewEmbeddingRepository(backend)
//	embedder := cache.NewEmbedder(repo, orchestrator, "all-minilm")
package cache
