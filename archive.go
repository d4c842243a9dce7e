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


package mboxsearch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/poiesic/mboxsearch/ai"
	"github.com/poiesic/mboxsearch/ai/cache"
	"github.com/poiesic/mboxsearch/ai/openai"
	"github.com/poiesic/mboxsearch/core"
	"github.com/poiesic/mboxsearch/embedding"
	"github.com/poiesic/mboxsearch/mailbox"
	"github.com/poiesic/mboxsearch/search"
	"github.com/poiesic/mboxsearch/storage"
	"github.com/poiesic/mboxsearch/storage/badger"
	"github.com/poiesic/mboxsearch/storage/mboxfile"
)

// Archive is a searchable mbox file: storage, embedding workers, an
// optional embedding cache and an in-memory vector index wired together.
type Archive struct {
	storage      *mboxfile.MboxFile
	provider     ai.AIProvider
	orchestrator *embedding.Orchestrator
	cacheBackend *badger.Backend
	index        *search.MemoryCosine
	service      *mailbox.Service
	logger       *slog.Logger
}

// Option configures an Archive.
type Option func(*options)

type options struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	workers     int
	maxAttempts int
	retryDelay  time.Duration
	batchSize   int
	cacheDir    string
	registerer  prometheus.Registerer
	progress    io.Writer
	logger      *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithProvider uses provider instead of an OpenAI-compatible one built from
// the AI config. The Archive takes ownership and closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithWorkers sets the number of embedding workers.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithRetry retries each failed embedding chunk up to maxAttempts times.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(o *options) {
		o.maxAttempts = maxAttempts
		o.retryDelay = baseDelay
	}
}

// WithBatchSize sets the number of messages embedded per call.
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithCacheDir persists embeddings in a BadgerDB database under dir so
// unchanged messages are not re-embedded on the next run.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

// WithMetrics registers indexing and search metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithProgress writes an indexing progress line to w.
func WithProgress(w io.Writer) Option {
	return func(o *options) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open loads the mbox file at path and prepares it for indexing.
// Embedding workers are started and their models loaded before Open returns.
func Open(path string, opts ...Option) (*Archive, error) {
	o := &options{
		aiConfig:    ai.DefaultConfig(),
		maxAttempts: 1,
		retryDelay:  embedding.DefaultRetryDelay,
		batchSize:   mailbox.DefaultBatchSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	a := &Archive{logger: o.logger.With("component", "archive")}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	// A caller's provider is owned from here on, even if storage fails to open.
	a.provider = o.provider

	var err error
	a.storage, err = mboxfile.Open(path, mboxfile.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	if a.provider == nil {
		a.provider, err = openai.NewProvider(o.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	orchestratorOpts := []embedding.Option{
		embedding.WithRetry(o.maxAttempts, o.retryDelay),
		embedding.WithLogger(o.logger),
	}
	if o.workers > 0 {
		orchestratorOpts = append(orchestratorOpts, embedding.WithWorkers(o.workers))
	}
	a.orchestrator, err = embedding.New(a.provider.NewEmbedder, orchestratorOpts...)
	if err != nil {
		return nil, err
	}

	var embedder ai.Embedder = a.orchestrator
	if o.cacheDir != "" {
		a.cacheBackend, err = badger.OpenBackend(o.cacheDir, false)
		if err != nil {
			return nil, err
		}
		repo, err := badger.NewEmbeddingRepository(a.cacheBackend)
		if err != nil {
			return nil, err
		}
		embedder = cache.NewEmbedder(repo, a.orchestrator, o.aiConfig.EmbeddingModel)
	}

	a.index = search.NewMemoryCosine()
	a.service, err = mailbox.NewService(a.storage, embedder, a.index,
		mailbox.WithBatchSize(o.batchSize),
		mailbox.WithMetrics(mailbox.NewMetrics(o.registerer)),
		mailbox.WithProgress(o.progress),
		mailbox.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	ok = true
	a.logger.Info("archive opened", "path", path, "messages", a.storage.CountEmails())
	return a, nil
}

// Index embeds every message with a body into the in-memory vector index.
func (a *Archive) Index(ctx context.Context) mailbox.IndexReport {
	return a.service.IndexEmails(ctx)
}

// Search returns the k messages most similar to query, best first.
// A non-positive k means mailbox.DefaultResults.
func (a *Archive) Search(ctx context.Context, query string, k int) ([]core.SearchResult, error) {
	return a.service.SearchEmail(ctx, query, k)
}

// Storage returns the underlying message repository.
func (a *Archive) Storage() storage.MessageRepository {
	return a.storage
}

// Close stops the embedding workers and releases the provider, the cache
// and the mapped archive.
func (a *Archive) Close() error {
	var errs []error
	if a.orchestrator != nil {
		if err := a.orchestrator.Close(); err != nil {
			a.logger.Error("error closing embedding workers", "err", err)
			errs = append(errs, err)
		}
	}
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if a.cacheBackend != nil {
		if err := a.cacheBackend.Close(); err != nil {
			a.logger.Error("error closing embedding cache", "err", err)
			errs = append(errs, err)
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Error("error closing archive storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
