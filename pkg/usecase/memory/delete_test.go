package memory_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/engram/pkg/adapter"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/repository"
	"github.com/m-mizutani/engram/pkg/usecase/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	out := env.mustStore(t, &model.StoreMemoryInput{
		Text: "ephemeral observation",
		Type: model.MemoryTypeNote,
	})

	gt.NoError(t, env.uc.Delete(ctx, &model.DeleteMemoryInput{MemoryID: out.MemoryID}))

	memories, err := env.uc.List(ctx, &model.ListMemoriesInput{})
	gt.NoError(t, err)
	gt.A(t, memories).Length(0)

	results, err := env.uc.Search(ctx, &model.SearchMemoryInput{Query: "ephemeral observation"})
	gt.NoError(t, err)
	gt.A(t, results).Length(0)
	gt.Equal(t, env.index.Len(), 0)
}

func TestDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	err := env.uc.Delete(ctx, &model.DeleteMemoryInput{MemoryID: 999})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagNotFound))
	gt.True(t, model.IsClientError(err))
}

func TestDeleteValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	err := env.uc.Delete(ctx, &model.DeleteMemoryInput{})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagInvalidInput))
}

func TestDeleteIndexFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	out := env.mustStore(t, &model.StoreMemoryInput{
		Text: "still here",
		Type: model.MemoryTypeNote,
	})
	env.index.DeleteErr = goerr.New("index unreachable", goerr.T(model.ErrTagIndex))

	err := env.uc.Delete(ctx, &model.DeleteMemoryInput{MemoryID: out.MemoryID})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagIndex))

	// Index delete comes first, so a failure there leaves the relational
	// side untouched.
	memories, err := env.uc.List(ctx, &model.ListMemoriesInput{})
	gt.NoError(t, err)
	gt.A(t, memories).Length(1)
}

func TestDeleteLostRace(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{InMemory: repository.NewInMemory()}
	index := adapter.NewMockIndex()
	uc := memory.New(repo, adapter.NewMockEmbedder(), index)

	out, err := uc.Store(ctx, &model.StoreMemoryInput{
		Text: "contested",
		Type: model.MemoryTypeNote,
	})
	gt.NoError(t, err)

	repo.deleteMemoryErr = goerr.New("memory row was not deleted", goerr.T(model.ErrTagStore))

	err = uc.Delete(ctx, &model.DeleteMemoryInput{MemoryID: out.MemoryID})
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagStore))
}
