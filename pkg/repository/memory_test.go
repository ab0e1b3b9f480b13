package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

// tickingClock returns a clock that advances one second per call, so every
// row gets a distinct created_at.
func tickingClock() func() time.Time {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestInMemoryCreateMemory(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInMemory(repository.WithClock(tickingClock()))

	mem := &model.Memory{Text: "first", Type: model.MemoryTypeNote}
	id, err := repo.CreateMemory(ctx, mem)
	gt.NoError(t, err)
	gt.Equal(t, id, model.MemoryID(1))
	gt.True(t, !mem.CreatedAt.IsZero())
	gt.Equal(t, mem.CreatedAt, mem.UpdatedAt)

	id2, err := repo.CreateMemory(ctx, &model.Memory{Text: "second", Type: model.MemoryTypeNote})
	gt.NoError(t, err)
	gt.Equal(t, id2, model.MemoryID(2))
}

func TestInMemoryGetMemoriesBatch(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInMemory()

	for _, text := range []string{"a", "b", "c"} {
		_, err := repo.CreateMemory(ctx, &model.Memory{Text: text, Type: model.MemoryTypeNote})
		gt.NoError(t, err)
	}

	memories, err := repo.GetMemories(ctx, []model.MemoryID{1, 3, 999})
	gt.NoError(t, err)
	gt.A(t, memories).Length(2)
}

func TestInMemoryListMemories(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInMemory(repository.WithClock(tickingClock()))

	seeds := []*model.Memory{
		{Text: "note one", Type: model.MemoryTypeNote, Source: "alice"},
		{Text: "decision one", Type: model.MemoryTypeDecision, Source: "bob"},
		{Text: "note two", Type: model.MemoryTypeNote, Source: "bob"},
	}
	for _, mem := range seeds {
		_, err := repo.CreateMemory(ctx, mem)
		gt.NoError(t, err)
	}

	all, err := repo.ListMemories(ctx, &repository.ListInput{})
	gt.NoError(t, err)
	gt.A(t, all).Length(3)
	gt.Equal(t, all[0].Text, "note two")
	gt.Equal(t, all[1].Text, "decision one")
	gt.Equal(t, all[2].Text, "note one")

	notes, err := repo.ListMemories(ctx, &repository.ListInput{Type: model.MemoryTypeNote})
	gt.NoError(t, err)
	gt.A(t, notes).Length(2)
	for _, mem := range notes {
		gt.Equal(t, mem.Type, model.MemoryTypeNote)
	}

	bobNotes, err := repo.ListMemories(ctx, &repository.ListInput{
		Type:   model.MemoryTypeNote,
		Source: "bob",
	})
	gt.NoError(t, err)
	gt.A(t, bobNotes).Length(1)
	gt.Equal(t, bobNotes[0].Text, "note two")
}

func TestInMemoryListPagination(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInMemory(repository.WithClock(tickingClock()))

	for i := 0; i < 5; i++ {
		_, err := repo.CreateMemory(ctx, &model.Memory{Text: "row", Type: model.MemoryTypeNote})
		gt.NoError(t, err)
	}

	page, err := repo.ListMemories(ctx, &repository.ListInput{Limit: 2, Offset: 1})
	gt.NoError(t, err)
	gt.A(t, page).Length(2)
	gt.Equal(t, page[0].ID, model.MemoryID(4))
	gt.Equal(t, page[1].ID, model.MemoryID(3))

	empty, err := repo.ListMemories(ctx, &repository.ListInput{Offset: 10})
	gt.NoError(t, err)
	gt.A(t, empty).Length(0)
}

func TestInMemoryDeleteCascade(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInMemory()

	id, err := repo.CreateMemory(ctx, &model.Memory{Text: "x", Type: model.MemoryTypeNote})
	gt.NoError(t, err)
	gt.NoError(t, repo.CreateMemoryVector(ctx, &model.MemoryVector{
		MemoryID:       id,
		VectorID:       "point-1",
		EmbeddingModel: "mock",
	}))

	vec, err := repo.GetMemoryVector(ctx, id)
	gt.NoError(t, err)
	gt.V(t, vec).NotNil()

	gt.NoError(t, repo.DeleteMemory(ctx, id))

	vec, err = repo.GetMemoryVector(ctx, id)
	gt.NoError(t, err)
	gt.True(t, vec == nil)
}

func TestInMemoryDeleteMissing(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInMemory()

	err := repo.DeleteMemory(ctx, 999)
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagStore))
}

func TestInMemoryVectorConstraints(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInMemory()

	err := repo.CreateMemoryVector(ctx, &model.MemoryVector{MemoryID: 42, VectorID: "p"})
	gt.Error(t, err)

	id, err := repo.CreateMemory(ctx, &model.Memory{Text: "x", Type: model.MemoryTypeNote})
	gt.NoError(t, err)
	gt.NoError(t, repo.CreateMemoryVector(ctx, &model.MemoryVector{MemoryID: id, VectorID: "p"}))

	err = repo.CreateMemoryVector(ctx, &model.MemoryVector{MemoryID: id, VectorID: "q"})
	gt.Error(t, err)

	vec, err := repo.GetMemoryVector(ctx, 999)
	gt.NoError(t, err)
	gt.True(t, vec == nil)
}
