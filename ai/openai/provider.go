package openai

import (
	"context"
	"log/slog"
	"sync"

	"github.com/poiesic/mboxsearch/ai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider implements ai.AIProvider using OpenAI-compatible services.
type Provider struct {
	config     *ai.Config
	clientOpts []openai.Option
	logger     *slog.Logger

	once     sync.Once
	embedder ai.Embedder
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use. Extra client options
// are passed through to every embedder the provider builds. The shared
// embedder is built on first use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config, clientOpts ...openai.Option) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Provider{
		config:     config,
		clientOpts: clientOpts,
		logger:     slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the shared embedder, building it on the first call. If
// the build fails, the returned embedder reports that error on every call.
func (p *Provider) Embedder() ai.Embedder {
	p.once.Do(func() {
		e, err := newEmbedder(p.config, p.clientOpts...)
		if err != nil {
			p.logger.Error("failed to build shared embedder", "error", err)
			p.embedder = unavailableEmbedder{err: err}
			return
		}
		p.embedder = e
	})
	return p.embedder
}

// NewEmbedder builds an independent embedder with the provider's configuration.
func (p *Provider) NewEmbedder() (ai.Embedder, error) {
	return newEmbedder(p.config, p.clientOpts...)
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}

type unavailableEmbedder struct {
	err error
}

func (u unavailableEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return nil, u.err
}

func (u unavailableEmbedder) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return nil, u.err
}
