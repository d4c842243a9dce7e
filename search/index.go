package search

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"

	"github.com/poiesic/mboxsearch/core"
)

// VectorIndex stores one vector per message ID and answers top-k queries.
type VectorIndex interface {
	// Index stores vector under id, replacing any previous vector for id.
	Index(id core.ID, vector []float32) error

	// Search returns at most k hits ordered by descending score.
	Search(query []float32, k int) ([]core.Hit, error)

	// Len returns the number of indexed IDs.
	Len() int
}

// MemoryCosine is an exact, in-memory VectorIndex ranked by cosine similarity.
// It is safe for concurrent use.
type MemoryCosine struct {
	mu      sync.RWMutex
	dims    int
	slots   map[core.ID]int
	ids     []core.ID
	vectors [][]float32
	norms   []float64
}

var _ VectorIndex = (*MemoryCosine)(nil)

// NewMemoryCosine creates an empty index. Its dimension is fixed by the
// first vector indexed.
func NewMemoryCosine() *MemoryCosine {
	return &MemoryCosine{slots: make(map[core.ID]int)}
}

// Index stores a copy of vector under id. The last write for an id wins.
func (m *MemoryCosine) Index(id core.ID, vector []float32) error {
	if len(vector) == 0 {
		return ErrEmptyVector
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dims == 0 {
		m.dims = len(vector)
	} else if len(vector) != m.dims {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), m.dims)
	}

	v := append([]float32(nil), vector...)
	if slot, ok := m.slots[id]; ok {
		m.vectors[slot] = v
		m.norms[slot] = norm(v)
		return nil
	}
	m.slots[id] = len(m.ids)
	m.ids = append(m.ids, id)
	m.vectors = append(m.vectors, v)
	m.norms = append(m.norms, norm(v))
	return nil
}

// Search scores every indexed vector against query and returns the k best,
// sorted by descending score and then by ascending ID.
// A non-positive k yields no hits.
func (m *MemoryCosine) Search(query []float32, k int) ([]core.Hit, error) {
	if len(query) == 0 {
		return nil, ErrEmptyVector
	}
	if k <= 0 {
		return []core.Hit{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dims != 0 && len(query) != m.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), m.dims)
	}

	qn := norm(query)
	top := make(hitHeap, 0, min(k, len(m.ids)))
	for i, v := range m.vectors {
		var score float32
		if qn != 0 && m.norms[i] != 0 {
			score = float32(dot(query, v) / (qn * m.norms[i]))
		}
		hit := core.Hit{Id: m.ids[i], Score: score}
		switch {
		case len(top) < k:
			heap.Push(&top, hit)
		case score > top[0].Score:
			top[0] = hit
			heap.Fix(&top, 0)
		}
	}

	hits := []core.Hit(top)
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Id < hits[j].Id
	})
	return hits, nil
}

// Len returns the number of indexed IDs.
func (m *MemoryCosine) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// hitHeap is a min-heap on score; the root is the worst of the current top-k.
type hitHeap []core.Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x any) { *h = append(*h, x.(core.Hit)) }

func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
