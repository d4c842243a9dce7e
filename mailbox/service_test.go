package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gombox "github.com/emersion/go-mbox"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/mboxsearch/ai"
	"github.com/poiesic/mboxsearch/ai/mock"
	"github.com/poiesic/mboxsearch/core"
	"github.com/poiesic/mboxsearch/embedding"
	"github.com/poiesic/mboxsearch/search"
	"github.com/poiesic/mboxsearch/storage"
	"github.com/poiesic/mboxsearch/storage/mboxfile"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(s string) *string { return &s }

// memoryRepo is an in-memory storage.MessageRepository.
type memoryRepo struct {
	messages []*core.Message
	missing  map[core.ID]bool
}

func (r *memoryRepo) GetEmail(id core.ID) (*core.Message, error) {
	if int(id) >= len(r.messages) || r.missing[id] {
		return nil, storage.ErrNotFound
	}
	return r.messages[id], nil
}

func (r *memoryRepo) CountEmails() int { return len(r.messages) }

func (r *memoryRepo) Emails() iter.Seq[*core.Message] {
	return func(yield func(*core.Message) bool) {
		for _, m := range r.messages {
			if !yield(m) {
				return
			}
		}
	}
}

func (r *memoryRepo) Close() error { return nil }

func newRepo(n int) *memoryRepo {
	r := &memoryRepo{missing: map[core.ID]bool{}}
	for i := range n {
		r.messages = append(r.messages, &core.Message{
			Id:       core.ID(i),
			From:     fmt.Sprintf("user%d@example.com", i),
			Subject:  fmt.Sprintf("message %d", i),
			Datetime: time.Date(2024, 1, 1, i, 0, 0, 0, time.UTC),
			BodyText: ptr(fmt.Sprintf("body %d", i)),
		})
	}
	return r
}

func newService(t *testing.T, repo storage.MessageRepository, embedder ai.Embedder, opts ...Option) (*Service, *search.MemoryCosine) {
	t.Helper()
	idx := search.NewMemoryCosine()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s, err := NewService(repo, embedder, idx, opts...)
	require.NoError(t, err)
	return s, idx
}

func TestNewService_RequiredArguments(t *testing.T) {
	repo := newRepo(1)
	embedder := mock.NewMockEmbedder()
	idx := search.NewMemoryCosine()

	_, err := NewService(nil, embedder, idx)
	assert.ErrorIs(t, err, ErrStorageRequired)
	_, err = NewService(repo, nil, idx)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewService(repo, embedder, nil)
	assert.ErrorIs(t, err, ErrIndexRequired)
	_, err = NewService(repo, embedder, idx, WithBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
}

func TestIndexEmails_Batches(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	s, idx := newService(t, newRepo(25), embedder, WithBatchSize(10))

	report := s.IndexEmails(context.Background())

	assert.Equal(t, IndexReport{Seen: 25, Indexed: 25}, report)
	assert.Equal(t, 25, idx.Len())
	assert.Equal(t, 3, embedder.CallCount(), "10 + 10 + 5")
}

func TestIndexEmails_SkipsMessagesWithoutBody(t *testing.T) {
	repo := newRepo(4)
	repo.messages[1].BodyText = nil
	repo.messages[2].BodyText = nil
	repo.messages[2].BodyHTML = ptr("<p>only <b>html</b></p>")

	var inputs []string
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		inputs = append(inputs, texts...)
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.Vector(text, 8)
		}
		return out, nil
	}

	s, idx := newService(t, repo, embedder)
	report := s.IndexEmails(context.Background())

	assert.Equal(t, IndexReport{Seen: 4, Indexed: 3, Skipped: 1}, report)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, []string{"body 0", "only html", "body 3"}, inputs)
}

func TestIndexEmails_FailedBatchIsSkipped(t *testing.T) {
	calls := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 2 {
			return nil, ai.ErrModelUnavailable
		}
		return mock.NewMockEmbedder().EmbedTexts(ctx, texts)
	}

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	s, idx := newService(t, newRepo(12), embedder, WithBatchSize(5), WithMetrics(metrics))

	report := s.IndexEmails(context.Background())

	assert.Equal(t, IndexReport{Seen: 12, Indexed: 7, FailedBatches: 1}, report)
	assert.Equal(t, 7, idx.Len())
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.MessagesIndexed))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BatchesFailed))
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.IndexSize))
}

func TestIndexEmails_Progress(t *testing.T) {
	t.Run("skipped messages move the line", func(t *testing.T) {
		repo := newRepo(6)
		repo.messages[1].BodyText = nil
		var out bytes.Buffer
		s, _ := newService(t, repo, mock.NewMockEmbedder(), WithBatchSize(4), WithProgress(&out))

		s.IndexEmails(context.Background())

		assert.Contains(t, out.String(), "Progress: 4/6 (66.7%), 0 indexed")
		assert.Contains(t, out.String(), "Progress: 6/6 (100.0%), 5 indexed")
		assert.True(t, strings.HasSuffix(out.String(), "\n"))
	})

	t.Run("canceled run stops short of the total", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			cancel()
			return mock.NewMockEmbedder().EmbedTexts(context.Background(), texts)
		}
		var out bytes.Buffer
		s, _ := newService(t, newRepo(10), embedder, WithBatchSize(2), WithProgress(&out))

		report := s.IndexEmails(ctx)

		assert.Equal(t, 2, report.Seen)
		assert.Contains(t, out.String(), "Progress: 2/10 (20.0%), 2 indexed")
		assert.NotContains(t, out.String(), "100.0%")
	})
}

func TestIndexEmails_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	embedder := mock.NewMockEmbedder()
	s, idx := newService(t, newRepo(5), embedder)
	report := s.IndexEmails(ctx)

	assert.Zero(t, report.Indexed)
	assert.Zero(t, idx.Len())
	assert.Zero(t, embedder.CallCount())
}

func TestSearchEmail(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	s, _ := newService(t, newRepo(20), mock.NewMockEmbedder(), WithMetrics(metrics))
	s.IndexEmails(context.Background())

	t.Run("default k", func(t *testing.T) {
		results, err := s.SearchEmail(context.Background(), "body 7", 0)
		require.NoError(t, err)
		require.Len(t, results, DefaultResults)
		assert.Equal(t, core.ID(7), results[0].Message.Id, "exact text ranks first")
		assert.InDelta(t, 1.0, results[0].Score, 1e-5)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})

	t.Run("explicit k", func(t *testing.T) {
		results, err := s.SearchEmail(context.Background(), "anything", 3)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Searches.WithLabelValues("ok")))
}

func TestSearchEmail_AllOrNothing(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		s, _ := newService(t, newRepo(3), embedder)
		s.IndexEmails(context.Background())

		embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
			return nil, ai.ErrModelUnavailable
		}
		_, err := s.SearchEmail(context.Background(), "q", 2)
		assert.ErrorIs(t, err, ai.ErrModelUnavailable)
	})

	t.Run("hydration failure", func(t *testing.T) {
		repo := newRepo(3)
		s, _ := newService(t, repo, mock.NewMockEmbedder())
		s.IndexEmails(context.Background())

		repo.missing[1] = true
		results, err := s.SearchEmail(context.Background(), "q", 3)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Nil(t, results)
	})
}

// writeArchive renders n messages with go-mbox and returns the file path.
func writeArchive(t *testing.T, n int) string {
	t.Helper()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	topics := []string{"release planning", "lunch order", "server outage", "budget review", "holiday party"}

	var b bytes.Buffer
	w := gombox.NewWriter(&b)
	for i := range n {
		date := base.Add(time.Duration(i) * time.Hour)
		mw, err := w.CreateMessage(fmt.Sprintf("user%d@example.com", i), date)
		require.NoError(t, err)
		topic := topics[i%len(topics)]
		_, err = fmt.Fprintf(mw, "From: user%d@example.com\nSubject: %s %d\nDate: %s\n\nNotes about the %s, part %d.\n",
			i, topic, i, date.Format(time.RFC1123Z), topic, i)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "archive.mbox")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o600))
	return path
}

func TestEndToEnd_ArchiveSearch(t *testing.T) {
	repo, err := mboxfile.Open(writeArchive(t, 12), mboxfile.WithLogger(quietLogger()))
	require.NoError(t, err)
	defer repo.Close()

	provider := mock.NewMockProvider()
	orchestrator, err := embedding.New(provider.NewEmbedder, embedding.WithWorkers(3), embedding.WithLogger(quietLogger()))
	require.NoError(t, err)
	defer orchestrator.Close()

	s, idx := newService(t, repo, orchestrator, WithBatchSize(5))
	report := s.IndexEmails(context.Background())
	require.Equal(t, IndexReport{Seen: 12, Indexed: 12}, report)
	require.Equal(t, 12, idx.Len())

	results, err := s.SearchEmail(context.Background(), "server outage", 5)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for _, r := range results {
		stored, err := repo.GetEmail(r.Message.Id)
		require.NoError(t, err)
		assert.Equal(t, stored.Subject, r.Message.Subject)
		assert.NotEmpty(t, r.Message.From)
	}
}
