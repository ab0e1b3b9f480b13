package repository

import (
	"context"

	"github.com/m-mizutani/engram/pkg/model"
)

// ListInput filters and paginates a relational list query. Present fields
// are ANDed together.
type ListInput struct {
	Type   model.MemoryType
	Source string
	Limit  int
	Offset int
}

// Repository defines the interface for memory data persistence.
type Repository interface {
	// CreateMemory inserts a memory row and returns the store-assigned ID.
	// CreatedAt/UpdatedAt on mem are filled in from the stored row.
	CreateMemory(ctx context.Context, mem *model.Memory) (model.MemoryID, error)

	// GetMemories fetches the rows for the given IDs in one batched lookup.
	// Missing IDs are silently absent from the result; no order is imposed.
	GetMemories(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error)

	// ListMemories returns rows ordered by created_at descending.
	ListMemories(ctx context.Context, input *ListInput) ([]*model.Memory, error)

	// DeleteMemory removes a memory row. Zero rows affected is reported as
	// a store failure: it means the row vanished under us.
	DeleteMemory(ctx context.Context, id model.MemoryID) error

	// CreateMemoryVector inserts the memory-to-vector mapping row.
	CreateMemoryVector(ctx context.Context, vec *model.MemoryVector) error

	// GetMemoryVector returns the mapping row for a memory, or (nil, nil)
	// when no mapping exists.
	GetMemoryVector(ctx context.Context, id model.MemoryID) (*model.MemoryVector, error)

	// DeleteMemoryVector removes the mapping row for a memory.
	DeleteMemoryVector(ctx context.Context, id model.MemoryID) error
}
