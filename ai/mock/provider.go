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


package mock

import (
	"sync"

	"github.com/poiesic/mboxsearch/ai"
)

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	// NewEmbedderFunc is called by NewEmbedder if set.
	// If nil, each call returns a fresh default MockEmbedder.
	NewEmbedderFunc func() (ai.Embedder, error)

	embedder *MockEmbedder

	mu      sync.Mutex
	created []*MockEmbedder
	closed  bool
}

// NewMockProvider creates a new mock provider with default mock services.
func NewMockProvider() *MockProvider {
	return &MockProvider{embedder: NewMockEmbedder()}
}

// NewMockProviderWithEmbedder creates a mock provider whose shared embedder is embedder.
func NewMockProviderWithEmbedder(embedder *MockEmbedder) *MockProvider {
	return &MockProvider{embedder: embedder}
}

// Embedder returns the shared mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// NewEmbedder returns a fresh mock embedder, or the result of NewEmbedderFunc.
func (p *MockProvider) NewEmbedder() (ai.Embedder, error) {
	if p.NewEmbedderFunc != nil {
		return p.NewEmbedderFunc()
	}
	e := NewMockEmbedder()
	e.Dimensions = p.embedder.Dimensions

	p.mu.Lock()
	p.created = append(p.created, e)
	p.mu.Unlock()
	return e, nil
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// GetMockEmbedder returns the shared mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// Created returns the embedders built by NewEmbedder, in creation order.
func (p *MockProvider) Created() []*MockEmbedder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*MockEmbedder(nil), p.created...)
}

// Closed reports whether Close has been called.
func (p *MockProvider) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
