package mboxsearch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/mboxsearch/ai"
	"github.com/poiesic/mboxsearch/ai/mock"
	"github.com/poiesic/mboxsearch/mailbox"
	"github.com/poiesic/mboxsearch/mbox"
)

const fixture = "storage/mboxfile/testdata/three.mbox"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func embeddedTexts(p *mock.MockProvider) int {
	total := 0
	for _, e := range p.Created() {
		total += e.TextCount()
	}
	return total
}

func TestOpen(t *testing.T) {
	provider := mock.NewMockProvider()
	reg := prometheus.NewRegistry()

	a, err := Open(fixture,
		WithProvider(provider),
		WithWorkers(2),
		WithMetrics(reg),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, provider.Created(), 2, "one embedder per worker")
	assert.Equal(t, 3, a.Storage().CountEmails())

	msg, err := a.Storage().GetEmail(1)
	require.NoError(t, err)
	assert.Equal(t, "Café meeting notes", msg.Subject)

	report := a.Index(context.Background())
	assert.Equal(t, mailbox.IndexReport{Seen: 3, Indexed: 3}, report)

	results, err := a.Search(context.Background(), "Project kickoff", 0)
	require.NoError(t, err)
	assert.Len(t, results, 3, "k defaults to 5 but only 3 messages exist")

	count, err := testutil.GatherAndCount(reg, "mboxsearch_index_messages_indexed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOpen_EmbeddingCache(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "cache")
	ctx := context.Background()

	first := mock.NewMockProvider()
	a, err := Open(fixture, WithProvider(first), WithWorkers(1), WithCacheDir(cacheDir), WithLogger(quietLogger()))
	require.NoError(t, err)
	a.Index(ctx)
	want, err := a.Search(ctx, "weekly digest", 2)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.Equal(t, 4, embeddedTexts(first), "three bodies and one query")

	second := mock.NewMockProvider()
	a, err = Open(fixture, WithProvider(second), WithWorkers(1), WithCacheDir(cacheDir), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer a.Close()

	report := a.Index(ctx)
	assert.Equal(t, 3, report.Indexed)
	got, err := a.Search(ctx, "weekly digest", 2)
	require.NoError(t, err)
	assert.Zero(t, embeddedTexts(second), "everything comes from the cache")

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Message.Id, got[i].Message.Id)
		assert.Equal(t, want[i].Score, got[i].Score)
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Run("missing archive", func(t *testing.T) {
		provider := mock.NewMockProvider()
		_, err := Open(filepath.Join(t.TempDir(), "missing.mbox"), WithProvider(provider), WithLogger(quietLogger()))
		assert.ErrorIs(t, err, mbox.ErrFileAccess)
		assert.True(t, provider.Closed())
	})

	t.Run("embedder failure closes provider", func(t *testing.T) {
		provider := mock.NewMockProvider()
		provider.NewEmbedderFunc = func() (ai.Embedder, error) {
			return nil, errors.New("no model")
		}
		_, err := Open(fixture, WithProvider(provider), WithWorkers(2), WithLogger(quietLogger()))
		assert.ErrorIs(t, err, ai.ErrModelUnavailable)
		assert.True(t, provider.Closed())
	})
}
