package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Two-table layout. The FK cascade is a backstop: the substrate deletes the
// mapping row explicitly before the memory row.
const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id         BIGSERIAL PRIMARY KEY,
	text       TEXT NOT NULL CHECK (length(text) > 0),
	type       TEXT NOT NULL,
	source     TEXT,
	tags       TEXT[],
	metadata   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS memory_vectors (
	id              BIGSERIAL PRIMARY KEY,
	memory_id       BIGINT NOT NULL UNIQUE REFERENCES memories(id) ON DELETE CASCADE,
	vector_id       TEXT NOT NULL UNIQUE,
	embedding_model TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS memories_created_at_idx ON memories (created_at DESC);
`

// Postgres implements Repository on a PostgreSQL pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create postgres pool",
			goerr.T(model.ErrTagStore))
	}
	return &Postgres{pool: pool}, nil
}

func (r *Postgres) Close() {
	r.pool.Close()
}

// Migrate creates the schema when missing.
func (r *Postgres) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return goerr.Wrap(err, "failed to migrate schema",
			goerr.T(model.ErrTagStore))
	}
	return nil
}

func (r *Postgres) CreateMemory(ctx context.Context, mem *model.Memory) (model.MemoryID, error) {
	metadata, err := encodeMetadata(mem.Metadata)
	if err != nil {
		return 0, err
	}

	var source *string
	if mem.Source != "" {
		source = &mem.Source
	}

	var id int64
	row := r.pool.QueryRow(ctx, `
		INSERT INTO memories (text, type, source, tags, metadata)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		RETURNING id, created_at, updated_at`,
		mem.Text, string(mem.Type), source, mem.Tags, metadata)
	if err := row.Scan(&id, &mem.CreatedAt, &mem.UpdatedAt); err != nil {
		return 0, goerr.Wrap(err, "failed to insert memory row",
			goerr.T(model.ErrTagStore))
	}

	mem.ID = model.MemoryID(id)
	return mem.ID, nil
}

func (r *Postgres) GetMemories(ctx context.Context, ids []model.MemoryID) ([]*model.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rawIDs := make([]int64, len(ids))
	for i, id := range ids {
		rawIDs[i] = int64(id)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, text, type, source, tags, metadata, created_at, updated_at
		FROM memories
		WHERE id = ANY($1)`, rawIDs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query memory rows",
			goerr.T(model.ErrTagStore))
	}
	defer rows.Close()

	return scanMemories(rows)
}

func (r *Postgres) ListMemories(ctx context.Context, input *ListInput) ([]*model.Memory, error) {
	query := `
		SELECT id, text, type, source, tags, metadata, created_at, updated_at
		FROM memories`

	var args []any
	var conds []string
	if input.Type != "" {
		args = append(args, string(input.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if input.Source != "" {
		args = append(args, input.Source)
		conds = append(conds, fmt.Sprintf("source = $%d", len(args)))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	args = append(args, input.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))
	args = append(args, input.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memory rows",
			goerr.T(model.ErrTagStore))
	}
	defer rows.Close()

	return scanMemories(rows)
}

func (r *Postgres) DeleteMemory(ctx context.Context, id model.MemoryID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM memories WHERE id = $1`, int64(id))
	if err != nil {
		return goerr.Wrap(err, "failed to delete memory row",
			goerr.T(model.ErrTagStore),
			goerr.V("memory_id", int64(id)))
	}
	if tag.RowsAffected() == 0 {
		return goerr.New("memory row was not deleted",
			goerr.T(model.ErrTagStore),
			goerr.V("memory_id", int64(id)))
	}
	return nil
}

func (r *Postgres) CreateMemoryVector(ctx context.Context, vec *model.MemoryVector) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO memory_vectors (memory_id, vector_id, embedding_model)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		int64(vec.MemoryID), vec.VectorID, vec.EmbeddingModel)
	if err := row.Scan(&vec.CreatedAt); err != nil {
		return goerr.Wrap(err, "failed to insert memory vector row",
			goerr.T(model.ErrTagStore),
			goerr.V("memory_id", int64(vec.MemoryID)))
	}
	return nil
}

func (r *Postgres) GetMemoryVector(ctx context.Context, id model.MemoryID) (*model.MemoryVector, error) {
	var vec model.MemoryVector
	var memoryID int64
	row := r.pool.QueryRow(ctx, `
		SELECT memory_id, vector_id, embedding_model, created_at
		FROM memory_vectors
		WHERE memory_id = $1`, int64(id))
	if err := row.Scan(&memoryID, &vec.VectorID, &vec.EmbeddingModel, &vec.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to query memory vector row",
			goerr.T(model.ErrTagStore),
			goerr.V("memory_id", int64(id)))
	}

	vec.MemoryID = model.MemoryID(memoryID)
	return &vec, nil
}

func (r *Postgres) DeleteMemoryVector(ctx context.Context, id model.MemoryID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM memory_vectors WHERE memory_id = $1`, int64(id)); err != nil {
		return goerr.Wrap(err, "failed to delete memory vector row",
			goerr.T(model.ErrTagStore),
			goerr.V("memory_id", int64(id)))
	}
	return nil
}

func scanMemories(rows pgx.Rows) ([]*model.Memory, error) {
	var memories []*model.Memory
	for rows.Next() {
		var mem model.Memory
		var id int64
		var memType string
		var source *string
		var metadata []byte

		if err := rows.Scan(&id, &mem.Text, &memType, &source, &mem.Tags, &metadata, &mem.CreatedAt, &mem.UpdatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory row",
				goerr.T(model.ErrTagStore))
		}

		mem.ID = model.MemoryID(id)
		mem.Type = model.MemoryType(memType)
		if source != nil {
			mem.Source = *source
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &mem.Metadata); err != nil {
				return nil, goerr.Wrap(err, "failed to decode memory metadata",
					goerr.T(model.ErrTagStore),
					goerr.V("memory_id", id))
			}
		}
		memories = append(memories, &mem)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate memory rows",
			goerr.T(model.ErrTagStore))
	}
	return memories, nil
}

func encodeMetadata(metadata model.Metadata) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode memory metadata",
			goerr.T(model.ErrTagStore))
	}
	return encoded, nil
}
