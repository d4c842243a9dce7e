package cache

import (
	"context"
	"log/slog"

	"github.com/poiesic/mboxsearch/ai"
	"github.com/poiesic/mboxsearch/core"
	"github.com/poiesic/mboxsearch/storage"
)

// Embedder is a read-through cache in front of another ai.Embedder.
// Vectors are keyed by a hash of the model name and the text, so only
// texts never seen with this model reach the inner embedder.
type Embedder struct {
	repo   storage.EmbeddingRepository
	inner  ai.Embedder
	model  string
	logger *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder wraps inner with a cache stored in repo.
// Cache read and write failures are logged and never fail an embedding call.
func NewEmbedder(repo storage.EmbeddingRepository, inner ai.Embedder, model string) *Embedder {
	return &Embedder{
		repo:   repo,
		inner:  inner,
		model:  model,
		logger: slog.Default().With("component", "embedding-cache", "model", model),
	}
}

// Key returns the cache key for text under model.
func Key(model, text string) core.ID {
	return core.IDFromContent(model + "\x00" + text)
}

// EmbedText returns the cached vector for text, embedding it on a miss.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts returns one vector per text in input order. Cache misses are
// embedded in a single inner call, deduplicated by key.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	keys := make([]core.ID, len(texts))
	for i, text := range texts {
		keys[i] = Key(e.model, text)
	}

	cached, err := e.repo.GetEmbeddings(ctx, keys...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("cache lookup failed, embedding all texts", "err", err)
		cached = map[core.ID][]float32{}
	}

	var missTexts []string
	var missKeys []core.ID
	pending := make(map[core.ID]bool)
	for i, key := range keys {
		if _, ok := cached[key]; ok || pending[key] {
			continue
		}
		pending[key] = true
		missTexts = append(missTexts, texts[i])
		missKeys = append(missKeys, key)
	}

	e.logger.Debug("cache lookup", "texts", len(texts), "hits", len(texts)-len(missTexts))

	if len(missTexts) > 0 {
		fresh, err := e.inner.EmbedTexts(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if err := ai.CheckBatch(missTexts, fresh, 0); err != nil {
			return nil, err
		}

		toStore := make(map[core.ID][]float32, len(fresh))
		for i, key := range missKeys {
			toStore[key] = fresh[i]
			cached[key] = fresh[i]
		}
		if err := e.repo.PutEmbeddings(ctx, toStore); err != nil {
			e.logger.Warn("failed to store embeddings", "count", len(toStore), "err", err)
		}
	}

	result := make([][]float32, len(texts))
	for i, key := range keys {
		result[i] = cached[key]
	}
	return result, nil
}
