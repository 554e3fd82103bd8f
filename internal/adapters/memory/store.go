// Package memory provides the append-only, similarity-searchable episodic
// memory store used for recall during prediction generation.
package memory

import (
	"context"
	"fmt"
	"iter"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/pkg/metrics"
)

// defaultEmbeddingDim is the fixed embedding dimension unless configured.
const defaultEmbeddingDim = 16

// Store provides append-only writes and nearest-neighbor reads.
type Store interface {
	// Insert appends a memory. The store assigns ID and CreatedAt when unset.
	Insert(ctx context.Context, m model.EpisodicMemory) (model.EpisodicMemory, error)

	// Nearest returns a lazy, restartable sequence of at most k memories for
	// the expert, ordered by non-decreasing cosine distance from query.
	// An expert without history yields an empty sequence, not an error.
	Nearest(ctx context.Context, expertID string, query []float64, k int) iter.Seq[model.EpisodicMemory]

	// Count returns the total number of stored memories.
	Count(ctx context.Context) int
}

// InMemoryStore implements Store with per-expert append-only slices.
// Writes are safe under concurrent writers; reads take a snapshot and may
// trail in-flight inserts without correctness impact.
type InMemoryStore struct {
	mu       sync.RWMutex
	byExpert map[string][]model.EpisodicMemory
	total    int
	dim      int
	now      func() time.Time
}

// NewInMemoryStore creates an empty store with configuration options.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		byExpert: make(map[string][]model.EpisodicMemory),
		dim:      defaultEmbeddingDim,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert appends a memory.
func (s *InMemoryStore) Insert(ctx context.Context, m model.EpisodicMemory) (model.EpisodicMemory, error) {
	if len(m.Embedding) != s.dim {
		return model.EpisodicMemory{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(m.Embedding), s.dim)
	}
	if m.ExpertID == "" {
		return model.EpisodicMemory{}, fmt.Errorf("%w: empty expert id", ErrInvalidMemory)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}

	s.mu.Lock()
	s.byExpert[m.ExpertID] = append(s.byExpert[m.ExpertID], m)
	s.total++
	total := s.total
	s.mu.Unlock()

	metrics.RecordMemoryStored()
	metrics.UpdateMemoriesTotal(total)
	return m, nil
}

// Nearest returns the k nearest memories by cosine distance. The sequence is
// lazy and restartable: each range re-snapshots and re-ranks.
func (s *InMemoryStore) Nearest(ctx context.Context, expertID string, query []float64, k int) iter.Seq[model.EpisodicMemory] {
	return func(yield func(model.EpisodicMemory) bool) {
		if k <= 0 || len(query) != s.dim {
			return
		}

		s.mu.RLock()
		history := s.byExpert[expertID]
		snapshot := make([]model.EpisodicMemory, len(history))
		copy(snapshot, history)
		s.mu.RUnlock()

		if len(snapshot) == 0 {
			return
		}

		type ranked struct {
			m model.EpisodicMemory
			d float64
		}
		order := make([]ranked, 0, len(snapshot))
		for _, m := range snapshot {
			order = append(order, ranked{m: m, d: CosineDistance(query, m.Embedding)})
		}
		sort.SliceStable(order, func(i, j int) bool { return order[i].d < order[j].d })

		if k > len(order) {
			k = len(order)
		}
		for i := 0; i < k; i++ {
			if ctx.Err() != nil {
				return
			}
			if !yield(order[i].m) {
				return
			}
		}
	}
}

// Count returns the total number of stored memories.
func (s *InMemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// CosineDistance returns 1 - cosine similarity. Zero-magnitude vectors are
// treated as maximally distant.
func CosineDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
