package memory

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/m-mizutani/engram/pkg/adapter"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Search embeds the query, asks the vector index for the nearest neighbors
// under the translated filters, then fuses the matches with the relational
// rows in one batched lookup. Matches without a usable memory_id are
// dropped before resolution; an empty id set returns an empty result, not
// an error. Output is ordered by descending similarity score, stable on the
// index's own match order.
func (u *UseCase) Search(ctx context.Context, input *model.SearchMemoryInput) ([]*model.SearchResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit == 0 {
		limit = model.DefaultSearchLimit
	}

	vector, err := u.embedder.Embedding(ctx, input.Query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed search query")
	}

	var filter *adapter.VectorFilter
	if !input.Filters.Empty() {
		filter = &adapter.VectorFilter{
			Type:   string(input.Filters.Type),
			Source: input.Filters.Source,
			Tags:   input.Filters.Tags,
		}
	}

	matches, err := u.index.Query(ctx, vector, limit, filter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query vector index")
	}

	scores := make(map[model.MemoryID]float64, len(matches))
	order := make([]model.MemoryID, 0, len(matches))
	for _, match := range matches {
		id, ok := memoryIDFromPayload(match.Payload)
		if !ok {
			continue
		}
		if _, seen := scores[id]; !seen {
			order = append(order, id)
			scores[id] = match.Score
		}
	}
	if len(order) == 0 {
		return []*model.SearchResult{}, nil
	}

	memories, err := u.repo.GetMemories(ctx, order)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch memory rows")
	}

	byID := make(map[model.MemoryID]*model.Memory, len(memories))
	for _, mem := range memories {
		byID[mem.ID] = mem
	}

	results := make([]*model.SearchResult, 0, len(order))
	for _, id := range order {
		mem, ok := byID[id]
		if !ok {
			// index entry with no relational row; never shown to the caller
			continue
		}
		results = append(results, &model.SearchResult{
			Memory: mem,
			Score:  scores[id],
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// memoryIDFromPayload extracts a positive memory id from index metadata.
// JSON round-trips turn integers into float64, so several shapes must be
// accepted.
func memoryIDFromPayload(payload map[string]any) (model.MemoryID, bool) {
	raw, ok := payload["memory_id"]
	if !ok {
		return 0, false
	}

	var id int64
	switch v := raw.(type) {
	case int64:
		id = v
	case int:
		id = int64(v)
	case float64:
		id = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		id = n
	default:
		return 0, false
	}

	if id <= 0 {
		return 0, false
	}
	return model.MemoryID(id), true
}
