package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/engram/pkg/adapter"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/repository"
)

// UseCase is the memory substrate: it coordinates the relational store, the
// vector index and the embedding gateway. It holds no mutable state of its
// own; consistency relies on the ordering of durable writes, never on locks.
type UseCase struct {
	repo     repository.Repository
	embedder adapter.Embedder
	index    adapter.VectorIndex
	now      func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithClock replaces the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New creates a new memory UseCase instance
func New(
	repo repository.Repository,
	embedder adapter.Embedder,
	index adapter.VectorIndex,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:     repo,
		embedder: embedder,
		index:    index,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Fixed namespace for deriving vector point IDs.
var vectorIDNamespace = uuid.MustParse("9f2c1f7e-5c2a-4b8e-9d3f-1a6f0e8c4b21")

// newVectorID derives the vector index entry ID from the memory ID and its
// creation time. The timestamp component keeps IDs unique across retries of
// the same memory; UUID form keeps them valid Qdrant point IDs.
func newVectorID(id model.MemoryID, createdAt time.Time) string {
	name := fmt.Sprintf("memory/%d/%d", int64(id), createdAt.UnixNano())
	return uuid.NewSHA1(vectorIDNamespace, []byte(name)).String()
}
