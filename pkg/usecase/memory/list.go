package memory

import (
	"context"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

// List reads memories from the relational store only, newest first. The
// vector index is not involved, so memories whose indexing failed are still
// visible here.
func (u *UseCase) List(ctx context.Context, input *model.ListMemoriesInput) ([]*model.Memory, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit == 0 {
		limit = model.DefaultListLimit
	}

	memories, err := u.repo.ListMemories(ctx, &repository.ListInput{
		Type:   input.Type,
		Source: input.Source,
		Limit:  limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memory rows")
	}
	return memories, nil
}
