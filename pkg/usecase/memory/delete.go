package memory

import (
	"context"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Delete removes a memory from all three backing stores, index entry first
// so a vector never points at a missing memory. A missing mapping row is a
// normal not-found outcome. Zero rows affected on the final delete means a
// concurrent delete won the race; the repository reports it as a store
// failure.
func (u *UseCase) Delete(ctx context.Context, input *model.DeleteMemoryInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	vec, err := u.repo.GetMemoryVector(ctx, input.MemoryID)
	if err != nil {
		return goerr.Wrap(err, "failed to look up memory vector mapping")
	}
	if vec == nil {
		return goerr.New("memory not found",
			goerr.T(model.ErrTagNotFound),
			goerr.V("memory_id", int64(input.MemoryID)))
	}

	if err := u.index.Delete(ctx, []string{vec.VectorID}); err != nil {
		return goerr.Wrap(err, "failed to delete vector index entry")
	}

	if err := u.repo.DeleteMemoryVector(ctx, input.MemoryID); err != nil {
		return goerr.Wrap(err, "failed to delete memory vector mapping")
	}

	if err := u.repo.DeleteMemory(ctx, input.MemoryID); err != nil {
		return goerr.Wrap(err, "failed to delete memory row")
	}

	return nil
}
