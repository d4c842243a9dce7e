package mailbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/mboxsearch/ai"
	"github.com/poiesic/mboxsearch/core"
	"github.com/poiesic/mboxsearch/search"
	"github.com/poiesic/mboxsearch/storage"
)

const (
	// DefaultBatchSize is the number of messages embedded per call.
	DefaultBatchSize = 600

	// DefaultResults is the number of hits returned when k is not positive.
	DefaultResults = 5
)

// Service indexes an archive's messages into a vector index and answers
// free-text queries against it.
type Service struct {
	repo      storage.MessageRepository
	embedder  ai.Embedder
	index     search.VectorIndex
	batchSize int
	metrics   *Metrics
	progress  io.Writer
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithBatchSize sets how many messages are embedded per call.
// Default is 600.
func WithBatchSize(n int) Option {
	return func(s *Service) error {
		if n < 1 {
			return ErrInvalidBatchSize
		}
		s.batchSize = n
		return nil
	}
}

// WithMetrics sets the collectors updated during indexing and search.
// Default is a set of unregistered collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) error {
		if m != nil {
			s.metrics = m
		}
		return nil
	}
}

// WithProgress writes an indexing progress line to w.
func WithProgress(w io.Writer) Option {
	return func(s *Service) error {
		s.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a mailbox service over repo, embedding with embedder
// and storing vectors in index.
func NewService(repo storage.MessageRepository, embedder ai.Embedder, index search.VectorIndex, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, ErrStorageRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	s := &Service{
		repo:      repo,
		embedder:  embedder,
		index:     index,
		batchSize: DefaultBatchSize,
		metrics:   NewMetrics(nil),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "mailbox-service")
	return s, nil
}

// IndexReport summarizes one IndexEmails run.
type IndexReport struct {
	// Seen counts messages yielded by the repository.
	Seen int
	// Indexed counts messages whose vector was stored in the index.
	Indexed int
	// Skipped counts messages with no body, or whose vector the index rejected.
	Skipped int
	// FailedBatches counts batches whose embedding call failed.
	FailedBatches int
}

type pendingMessage struct {
	id   core.ID
	text string
}

// IndexEmails embeds every message with a body and adds it to the index,
// one batch at a time. A failed batch is logged and left unindexed; the run
// continues. Canceling ctx stops the run after the current batch.
func (s *Service) IndexEmails(ctx context.Context) IndexReport {
	var report IndexReport

	var progress *indexProgress
	if s.progress != nil {
		progress = newIndexProgress(s.progress, s.repo.CountEmails(), s.batchSize)
	}

	batch := make([]pendingMessage, 0, s.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.indexBatch(ctx, batch, &report)
		batch = batch[:0]
	}

	for msg := range s.repo.Emails() {
		if ctx.Err() != nil {
			break
		}
		report.Seen++

		if text, ok := embeddingInput(msg); ok {
			batch = append(batch, pendingMessage{id: msg.Id, text: text})
			if len(batch) == s.batchSize {
				flush()
			}
		} else {
			report.Skipped++
			s.metrics.MessagesSkipped.Inc()
			s.logger.Debug("message has no body", "id", msg.Id)
		}
		if progress != nil {
			progress.update(report)
		}
	}
	if ctx.Err() == nil {
		flush()
	} else {
		s.logger.Warn("indexing canceled", "seen", report.Seen, "err", ctx.Err())
	}

	if progress != nil {
		progress.done(report)
	}
	s.metrics.IndexSize.Set(float64(s.index.Len()))
	s.logger.Info("indexing complete",
		"seen", report.Seen,
		"indexed", report.Indexed,
		"skipped", report.Skipped,
		"failed_batches", report.FailedBatches)
	return report
}

func (s *Service) indexBatch(ctx context.Context, batch []pendingMessage, report *IndexReport) {
	start := time.Now()
	defer func() { s.metrics.BatchDuration.Observe(time.Since(start).Seconds()) }()

	texts := make([]string, len(batch))
	for i, m := range batch {
		texts[i] = m.text
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err == nil {
		err = ai.CheckBatch(texts, vectors, 0)
	}
	if err != nil {
		report.FailedBatches++
		s.metrics.BatchesFailed.Inc()
		s.logger.Error("embedding batch failed, leaving it unindexed",
			"first_id", batch[0].id, "size", len(batch), "err", err)
		return
	}

	for i, m := range batch {
		if err := s.index.Index(m.id, vectors[i]); err != nil {
			report.Skipped++
			s.metrics.MessagesSkipped.Inc()
			s.logger.Warn("vector rejected by index", "id", m.id, "err", err)
			continue
		}
		report.Indexed++
		s.metrics.MessagesIndexed.Inc()
	}
}

// SearchEmail embeds query and returns the k most similar messages, best
// first. A non-positive k means DefaultResults. Any embedding, index or
// storage failure fails the whole call.
func (s *Service) SearchEmail(ctx context.Context, query string, k int) (results []core.SearchResult, err error) {
	start := time.Now()
	defer func() {
		s.metrics.SearchDuration.Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.Searches.WithLabelValues(outcome).Inc()
	}()

	if k <= 0 {
		k = DefaultResults
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Search(vector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results = make([]core.SearchResult, 0, len(hits))
	for _, hit := range hits {
		msg, err := s.repo.GetEmail(hit.Id)
		if err != nil {
			return nil, fmt.Errorf("hydrate message %d: %w", hit.Id, err)
		}
		results = append(results, core.SearchResult{Message: msg, Score: hit.Score})
	}

	s.logger.Debug("search complete", "k", k, "results", len(results))
	return results, nil
}
