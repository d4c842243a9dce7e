package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/mboxsearch/ai"
)

// Orchestrator fans embedding batches out to a fixed set of long-lived
// workers and reassembles the vectors in input order.
//
// Each worker owns one embedder built by the factory at construction time,
// so model load cost is paid once per worker. Work reaches the workers
// through a shared bounded queue; a full queue blocks the caller.
type Orchestrator struct {
	workers     int
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger

	embedders []ai.Embedder
	pool      *ants.Pool
	tasks     chan task
	running   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ ai.Embedder = (*Orchestrator)(nil)

type task struct {
	ctx   context.Context
	index int
	texts []string
	reply chan<- chunkResult
}

type chunkResult struct {
	index   int
	vectors [][]float32
	err     error
}

// New builds an Orchestrator, calling factory once per worker.
// If any embedder fails to initialize, the ones already built are closed
// and the error is returned wrapped in ai.ErrModelUnavailable.
func New(factory ai.EmbedderFactory, opts ...Option) (*Orchestrator, error) {
	if factory == nil {
		return nil, ErrFactoryRequired
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	o := &Orchestrator{
		workers:     cfg.workers,
		maxAttempts: cfg.maxAttempts,
		baseDelay:   cfg.baseDelay,
		logger:      cfg.logger.With("component", "embedding-orchestrator"),
		tasks:       make(chan task, cfg.queueCapacity),
	}

	for i := 0; i < cfg.workers; i++ {
		e, err := factory()
		if err == nil && e == nil {
			err = errors.New("factory returned nil embedder")
		}
		if err != nil {
			closeEmbedders(o.embedders)
			return nil, fmt.Errorf("%w: worker %d: %w", ai.ErrModelUnavailable, i, err)
		}
		o.embedders = append(o.embedders, e)
	}

	pool, err := ants.NewPool(cfg.workers, ants.WithPreAlloc(true))
	if err != nil {
		closeEmbedders(o.embedders)
		return nil, err
	}
	o.pool = pool

	for id, e := range o.embedders {
		o.running.Add(1)
		if err := pool.Submit(func() { o.work(id, e) }); err != nil {
			o.running.Done()
			close(o.tasks)
			o.running.Wait()
			pool.Release()
			closeEmbedders(o.embedders)
			return nil, err
		}
	}

	o.logger.Info("embedding workers started", "workers", cfg.workers, "queue", cfg.queueCapacity)
	return o, nil
}

// Workers returns the number of workers.
func (o *Orchestrator) Workers() int {
	return o.workers
}

// EmbedText embeds a single text as a batch of one.
func (o *Orchestrator) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts splits texts into one contiguous chunk per worker, embeds the
// chunks concurrently and returns the vectors in input order.
// A failure on any chunk fails the whole call.
func (o *Orchestrator) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return nil, ErrOrchestratorClosed
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	chunks := split(len(texts), o.workers)
	reply := make(chan chunkResult, len(chunks))

	submitted := 0
	for i, c := range chunks {
		t := task{ctx: ctx, index: i, texts: texts[c.start:c.end], reply: reply}
		select {
		case o.tasks <- t:
			submitted++
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	results := make([][][]float32, len(chunks))
	var firstErr error
	for received := 0; received < submitted; received++ {
		select {
		case r := <-reply:
			if r.err != nil && firstErr == nil {
				firstErr = fmt.Errorf("chunk %d of %d: %w", r.index, len(chunks), r.err)
			}
			results[r.index] = r.vectors
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if firstErr != nil {
		o.logger.Error("embedding batch failed", "texts", len(texts), "err", firstErr)
		return nil, firstErr
	}

	out := make([][]float32, 0, len(texts))
	for _, vectors := range results {
		out = append(out, vectors...)
	}
	return out, nil
}

// Close stops the workers after queued work drains, releases the pool and
// closes every embedder that implements io.Closer. In-flight calls finish
// first; later calls return ErrOrchestratorClosed.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	close(o.tasks)
	o.mu.Unlock()

	o.running.Wait()
	o.pool.Release()
	o.logger.Debug("embedding workers stopped")
	return closeEmbedders(o.embedders)
}

func (o *Orchestrator) work(id int, e ai.Embedder) {
	defer o.running.Done()
	logger := o.logger.With("worker", id)
	for t := range o.tasks {
		t.reply <- o.run(logger, e, t)
	}
}

func (o *Orchestrator) run(logger *slog.Logger, e ai.Embedder, t task) chunkResult {
	var vectors [][]float32
	err := retryWithBackoff(t.ctx, logger, func() error {
		var err error
		vectors, err = embedSafely(t.ctx, e, t.texts)
		if err != nil {
			return err
		}
		return ai.CheckBatch(t.texts, vectors, 0)
	}, o.maxAttempts, o.baseDelay)
	if err != nil {
		logger.Warn("chunk failed", "chunk", t.index, "texts", len(t.texts), "err", err)
		return chunkResult{index: t.index, err: err}
	}
	return chunkResult{index: t.index, vectors: vectors}
}

// embedSafely turns an embedder panic into ai.ErrEncodeFailure so one bad
// input cannot take a worker down.
func embedSafely(ctx context.Context, e ai.Embedder, texts []string) (vectors [][]float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			vectors = nil
			err = fmt.Errorf("%w: embedder panic: %v", ai.ErrEncodeFailure, r)
		}
	}()
	return e.EmbedTexts(ctx, texts)
}

type span struct {
	start, end int
}

// split divides n items into at most parts contiguous, non-empty spans whose
// sizes differ by at most one. Earlier spans take the remainder.
func split(n, parts int) []span {
	if n == 0 {
		return nil
	}
	if parts > n {
		parts = n
	}
	size, rem := n/parts, n%parts
	spans := make([]span, parts)
	start := 0
	for i := range spans {
		end := start + size
		if i < rem {
			end++
		}
		spans[i] = span{start: start, end: end}
		start = end
	}
	return spans
}

func closeEmbedders(embedders []ai.Embedder) error {
	var errs []error
	for _, e := range embedders {
		if c, ok := e.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
