package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/engram/pkg/adapter"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/repository"
	"github.com/m-mizutani/engram/pkg/usecase/memory"
	"github.com/m-mizutani/gt"
)

type testEnv struct {
	uc       *memory.UseCase
	repo     *repository.InMemory
	embedder *adapter.MockEmbedder
	index    *adapter.MockIndex
}

func newTestEnv() *testEnv {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	clock := func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}

	repo := repository.NewInMemory(repository.WithClock(clock))
	embedder := adapter.NewMockEmbedder()
	index := adapter.NewMockIndex()

	return &testEnv{
		uc:       memory.New(repo, embedder, index, memory.WithClock(clock)),
		repo:     repo,
		embedder: embedder,
		index:    index,
	}
}

func (e *testEnv) mustStore(t *testing.T, input *model.StoreMemoryInput) *memory.StoreOutput {
	t.Helper()
	out, err := e.uc.Store(context.Background(), input)
	gt.NoError(t, err)
	gt.V(t, out).NotNil()
	return out
}

// failingRepo wraps InMemory with injectable failures for the saga steps.
type failingRepo struct {
	*repository.InMemory
	createVectorErr error
	deleteMemoryErr error
}

func (r *failingRepo) CreateMemoryVector(ctx context.Context, vec *model.MemoryVector) error {
	if r.createVectorErr != nil {
		return r.createVectorErr
	}
	return r.InMemory.CreateMemoryVector(ctx, vec)
}

func (r *failingRepo) DeleteMemory(ctx context.Context, id model.MemoryID) error {
	if r.deleteMemoryErr != nil {
		return r.deleteMemoryErr
	}
	return r.InMemory.DeleteMemory(ctx, id)
}
