package adapter

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// In-memory fakes for the three external capabilities. They are meant for
// tests and local development, not production.

// MockEmbedder produces deterministic bag-of-words vectors: texts sharing
// words end up with high cosine similarity, so similarity-ranking tests
// behave like a real embedding model would.
type MockEmbedder struct {
	Dimension int
	Model     string

	// EmbedFn overrides the default behavior when set.
	EmbedFn func(ctx context.Context, text string) ([]float32, error)
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Dimension: 64,
		Model:     "mock-embedding-001",
	}
}

func (m *MockEmbedder) Embedding(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFn != nil {
		return m.EmbedFn(ctx, text)
	}

	vec := make([]float32, m.Dimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[int(h.Sum32())%m.Dimension]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (m *MockEmbedder) ModelName() string {
	return m.Model
}

type mockPoint struct {
	vector  []float32
	payload map[string]any
}

// MockIndex is an in-memory cosine-similarity index with the same filter
// semantics as the Qdrant adapter. Err fields inject failures.
type MockIndex struct {
	mu     sync.Mutex
	points map[string]*mockPoint

	UpsertErr error
	QueryErr  error
	DeleteErr error
}

func NewMockIndex() *MockIndex {
	return &MockIndex{points: map[string]*mockPoint{}}
}

func (m *MockIndex) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[id] = &mockPoint{
		vector:  append([]float32(nil), vector...),
		payload: payload,
	}
	return nil
}

func (m *MockIndex) Query(ctx context.Context, vector []float32, topK int, filter *VectorFilter) ([]*VectorMatch, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []*VectorMatch
	for id, point := range m.points {
		if !matchesFilter(point.payload, filter) {
			continue
		}
		matches = append(matches, &VectorMatch{
			ID:      id,
			Score:   cosineSimilarity(vector, point.vector),
			Payload: point.payload,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MockIndex) Delete(ctx context.Context, ids []string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.points, id)
	}
	return nil
}

// Len returns the number of stored points.
func (m *MockIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.points)
}

func matchesFilter(payload map[string]any, filter *VectorFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Type != "" && payload["type"] != filter.Type {
		return false
	}
	if filter.Source != "" && payload["source"] != filter.Source {
		return false
	}
	if len(filter.Tags) > 0 && !anyTagOverlap(payload["tags"], filter.Tags) {
		return false
	}
	return true
}

func anyTagOverlap(value any, want []string) bool {
	var have []string
	switch v := value.(type) {
	case []string:
		have = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				have = append(have, s)
			}
		}
	default:
		return false
	}

	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// MockCache is an in-memory Cache with TTL expiry. Now is the clock used for
// expiry checks; Err fields inject failures.
type MockCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	Now    func() time.Time
	GetErr error
	SetErr error
}

func NewMockCache() *MockCache {
	return &MockCache{
		entries: map[string]cacheEntry{},
		Now:     time.Now,
	}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || m.Now().After(entry.expiresAt) {
		return nil, nil
	}
	return entry.value, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = cacheEntry{
		value:     append([]byte(nil), value...),
		expiresAt: m.Now().Add(ttl),
	}
	return nil
}
