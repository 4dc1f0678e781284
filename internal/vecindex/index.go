// Package vecindex is the in-process vector index used for question retrieval.
// It performs an exhaustive cosine scan, suitable for a bounded corpus.
package vecindex

import (
	"fmt"
	"slices"
	"sync"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
	"github.com/kailas-cloud/quizdex/internal/domain/vector"
)

// Metadata is attached to every entry. QuestionID and Payload are optional.
type Metadata struct {
	TopicID    string
	QuestionID string
	Payload    *question.Question
}

// Entry is a single indexed vector.
type Entry struct {
	ID        string
	Embedding []float32
	Metadata  Metadata
}

// Hit is a search result.
type Hit struct {
	Entry      Entry
	Similarity float64
}

// Predicate filters entries before scoring. A nil predicate admits everything.
type Predicate func(Entry) bool

type slot struct {
	entry Entry
	seq   uint64
}

// Index stores entries keyed by id. Reads share a lock; writes exclude readers.
type Index struct {
	dim int

	mu      sync.RWMutex
	entries map[string]*slot
	nextSeq uint64
}

// New creates an empty index of fixed dimension.
func New(dim int) *Index {
	if dim <= 0 {
		panic(fmt.Sprintf("vecindex: dimension must be positive, got %d", dim))
	}
	return &Index{dim: dim, entries: make(map[string]*slot)}
}

// Dimension returns the configured vector length.
func (idx *Index) Dimension() int { return idx.dim }

// CheckDimension reports ErrDimensionMismatch for vectors of the wrong length.
func (idx *Index) CheckDimension(vec []float32) error {
	if len(vec) != idx.dim {
		return fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, len(vec), idx.dim)
	}
	return nil
}

// Add inserts or overwrites an entry by id. Overwriting keeps the original
// insertion position. A wrong-length embedding is a programming error and panics.
func (idx *Index) Add(e Entry) {
	if err := idx.CheckDimension(e.Embedding); err != nil {
		panic(fmt.Sprintf("vecindex: add %q: %v", e.ID, err))
	}
	e.Embedding = slices.Clone(e.Embedding)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if s, ok := idx.entries[e.ID]; ok {
		s.entry = e
		return
	}
	idx.entries[e.ID] = &slot{entry: e, seq: idx.nextSeq}
	idx.nextSeq++
}

// Remove deletes an entry. Reports whether it existed.
func (idx *Index) Remove(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.entries[id]; !ok {
		return false
	}
	delete(idx.entries, id)
	return true
}

// Size returns the number of entries.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Get returns the entry stored under id.
func (idx *Index) Get(id string) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s, ok := idx.entries[id]
	if !ok {
		return Entry{}, false
	}
	return s.entry, true
}

// FilterByTopic returns entries whose topic is in topicIDs, in insertion order.
func (idx *Index) FilterByTopic(topicIDs map[string]struct{}) []Entry {
	idx.mu.RLock()
	slots := make([]*slot, 0, len(idx.entries))
	for _, s := range idx.entries {
		if _, ok := topicIDs[s.entry.Metadata.TopicID]; ok {
			slots = append(slots, s)
		}
	}
	idx.mu.RUnlock()

	slices.SortFunc(slots, func(a, b *slot) int { return cmpSeq(a.seq, b.seq) })

	out := make([]Entry, len(slots))
	for i, s := range slots {
		out[i] = s.entry
	}
	return out
}

// Search scores every entry admitted by pred against query and returns those with
// similarity >= minSimilarity, best first, ties in insertion order, at most topK.
func (idx *Index) Search(query []float32, topK int, minSimilarity float64, pred Predicate) ([]Hit, error) {
	if err := idx.CheckDimension(query); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if topK <= 0 {
		return nil, nil
	}

	type scored struct {
		hit Hit
		seq uint64
	}

	idx.mu.RLock()
	candidates := make([]scored, 0, len(idx.entries))
	for _, s := range idx.entries {
		if pred != nil && !pred(s.entry) {
			continue
		}
		sim := vector.Cosine(query, s.entry.Embedding)
		if sim < minSimilarity {
			continue
		}
		candidates = append(candidates, scored{hit: Hit{Entry: s.entry, Similarity: sim}, seq: s.seq})
	}
	idx.mu.RUnlock()

	slices.SortFunc(candidates, func(a, b scored) int {
		switch {
		case a.hit.Similarity > b.hit.Similarity:
			return -1
		case a.hit.Similarity < b.hit.Similarity:
			return 1
		}
		return cmpSeq(a.seq, b.seq)
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	hits := make([]Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = c.hit
	}
	return hits, nil
}

func cmpSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
