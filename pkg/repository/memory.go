package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// InMemory is an in-memory Repository for tests and local development. It
// mirrors the Postgres behavior, including the FK-style cascade from
// memories to memory_vectors and the zero-rows-affected delete failure.
type InMemory struct {
	mu       sync.Mutex
	nextID   model.MemoryID
	memories map[model.MemoryID]*model.Memory
	vectors  map[model.MemoryID]*model.MemoryVector
	now      func() time.Time
}

type InMemoryOption func(*InMemory)

// WithClock replaces the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) InMemoryOption {
	return func(r *InMemory) {
		r.now = now
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	r := &InMemory{
		nextID:   1,
		memories: map[model.MemoryID]*model.Memory{},
		vectors:  map[model.MemoryID]*model.MemoryVector{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *InMemory) CreateMemory(ctx context.Context, mem *model.Memory) (model.MemoryID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	mem.ID = r.nextID
	mem.CreatedAt = now
	mem.UpdatedAt = now
	r.nextID++

	stored := *mem
	r.memories[stored.ID] = &stored
	return stored.ID, nil
}

func (r *InMemory) GetMemories(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var memories []*model.Memory
	for _, id := range ids {
		if mem, ok := r.memories[id]; ok {
			clone := *mem
			memories = append(memories, &clone)
		}
	}
	return memories, nil
}

func (r *InMemory) ListMemories(ctx context.Context, input *ListInput) ([]*model.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var memories []*model.Memory
	for _, mem := range r.memories {
		if input.Type != "" && mem.Type != input.Type {
			continue
		}
		if input.Source != "" && mem.Source != input.Source {
			continue
		}
		clone := *mem
		memories = append(memories, &clone)
	}

	sort.Slice(memories, func(i, j int) bool {
		if !memories[i].CreatedAt.Equal(memories[j].CreatedAt) {
			return memories[i].CreatedAt.After(memories[j].CreatedAt)
		}
		return memories[i].ID > memories[j].ID
	})

	if input.Offset >= len(memories) {
		return nil, nil
	}
	memories = memories[input.Offset:]
	if input.Limit > 0 && len(memories) > input.Limit {
		memories = memories[:input.Limit]
	}
	return memories, nil
}

func (r *InMemory) DeleteMemory(ctx context.Context, id model.MemoryID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.memories[id]; !ok {
		return goerr.New("memory row was not deleted",
			goerr.T(model.ErrTagStore),
			goerr.V("memory_id", int64(id)))
	}

	delete(r.memories, id)
	delete(r.vectors, id) // cascade
	return nil
}

func (r *InMemory) CreateMemoryVector(ctx context.Context, vec *model.MemoryVector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.memories[vec.MemoryID]; !ok {
		return goerr.New("memory vector references a missing memory",
			goerr.T(model.ErrTagStore),
			goerr.V("memory_id", int64(vec.MemoryID)))
	}
	if _, ok := r.vectors[vec.MemoryID]; ok {
		return goerr.New("memory vector already exists",
			goerr.T(model.ErrTagStore),
			goerr.V("memory_id", int64(vec.MemoryID)))
	}

	vec.CreatedAt = r.now()
	stored := *vec
	r.vectors[stored.MemoryID] = &stored
	return nil
}

func (r *InMemory) GetMemoryVector(ctx context.Context, id model.MemoryID) (*model.MemoryVector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vec, ok := r.vectors[id]
	if !ok {
		return nil, nil
	}
	clone := *vec
	return &clone, nil
}

func (r *InMemory) DeleteMemoryVector(ctx context.Context, id model.MemoryID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.vectors, id)
	return nil
}
