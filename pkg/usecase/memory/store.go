package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// StoreOutput is the result of a successful store operation.
type StoreOutput struct {
	MemoryID model.MemoryID
	VectorID string
}

// Store persists a memory across the three backing stores, in order:
// embed, memory row, mapping row, index entry. Each write is durable before
// the next begins. A failure before the first insert leaves nothing behind;
// a failure after it triggers a compensating delete of the memory row (the
// FK cascade removes the mapping), so the caller never observes a partially
// stored memory without an error saying so.
func (u *UseCase) Store(ctx context.Context, input *model.StoreMemoryInput) (*StoreOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	vector, err := u.embedder.Embedding(ctx, input.Text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed memory text")
	}

	mem := &model.Memory{
		Text:     input.Text,
		Type:     input.Type,
		Source:   input.Source,
		Tags:     input.Tags,
		Metadata: input.Metadata,
	}
	memoryID, err := u.repo.CreateMemory(ctx, mem)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert memory row")
	}

	createdAt := mem.CreatedAt
	if createdAt.IsZero() {
		createdAt = u.now()
	}
	vectorID := newVectorID(memoryID, createdAt)

	vec := &model.MemoryVector{
		MemoryID:       memoryID,
		VectorID:       vectorID,
		EmbeddingModel: u.embedder.ModelName(),
	}
	if err := u.repo.CreateMemoryVector(ctx, vec); err != nil {
		return nil, u.compensate(ctx, memoryID,
			goerr.Wrap(err, "failed to insert memory vector mapping"))
	}

	payload := map[string]any{
		"memory_id":  int64(memoryID),
		"text":       mem.Text,
		"type":       string(mem.Type),
		"created_at": createdAt.UTC().Format(time.RFC3339Nano),
	}
	if mem.Source != "" {
		payload["source"] = mem.Source
	}
	if len(mem.Tags) > 0 {
		payload["tags"] = mem.Tags
	}
	if err := u.index.Upsert(ctx, vectorID, vector, payload); err != nil {
		return nil, u.compensate(ctx, memoryID,
			goerr.Wrap(err, "failed to upsert vector index entry"))
	}

	return &StoreOutput{
		MemoryID: memoryID,
		VectorID: vectorID,
	}, nil
}

// compensate rolls back the memory row after a later store step failed and
// returns the original cause. When the rollback itself fails, the orphaned
// row is reported in the returned error rather than silently left behind.
func (u *UseCase) compensate(ctx context.Context, id model.MemoryID, cause error) error {
	if err := u.repo.DeleteMemory(ctx, id); err != nil {
		logging.From(ctx).Warn("compensating delete failed, memory row is orphaned",
			"memory_id", int64(id), "error", err)
		return goerr.Wrap(cause, "store failed and compensation left an orphaned memory row",
			goerr.V("memory_id", int64(id)),
			goerr.V("compensation_error", err.Error()))
	}
	return cause
}
