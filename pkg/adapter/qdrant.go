package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// VectorMatch is one ranked result from a nearest-neighbor query.
type VectorMatch struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// VectorFilter restricts a query to entries whose payload satisfies all
// present fields. Tags match when the entry shares at least one tag.
type VectorFilter struct {
	Type   string
	Source string
	Tags   []string
}

// VectorIndex is the narrow interface over the external nearest-neighbor
// index. All failures are reported as index failures.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error
	Query(ctx context.Context, vector []float32, topK int, filter *VectorFilter) ([]*VectorMatch, error)
	Delete(ctx context.Context, ids []string) error
}

// QdrantClient talks to a Qdrant collection over its REST API.
type QdrantClient struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

type QdrantOption func(*QdrantClient)

func WithQdrantAPIKey(key string) QdrantOption {
	return func(q *QdrantClient) {
		q.apiKey = key
	}
}

func WithQdrantHTTPClient(client *http.Client) QdrantOption {
	return func(q *QdrantClient) {
		q.client = client
	}
}

func NewQdrant(baseURL, collection string, opts ...QdrantOption) *QdrantClient {
	if baseURL == "" {
		baseURL = "http://localhost:6333"
	}

	q := &QdrantClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		client:     &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// qdrantStatus accepts both `status: "ok"` and `status: {"error": "..."}`.
type qdrantStatus struct {
	State string
	Error string
}

func (s *qdrantStatus) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		s.State = strings.ToLower(v)
		return nil
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Error != "" {
		s.State = "error"
		s.Error = obj.Error
	}
	return nil
}

type qdrantEnvelope[T any] struct {
	Status qdrantStatus `json:"status"`
	Result T            `json:"result"`
}

type qdrantPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// EnsureCollection creates the cosine-distance collection if it does not
// exist yet. Safe to call repeatedly.
func (q *QdrantClient) EnsureCollection(ctx context.Context, dimension int) error {
	req := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}

	err := q.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", url.PathEscape(q.collection)), req, nil)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return nil
	}
	return err
}

func (q *QdrantClient) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	req := map[string]any{
		"points": []map[string]any{{
			"id":      id,
			"vector":  vector,
			"payload": payload,
		}},
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(q.collection))
	if err := q.do(ctx, http.MethodPut, path, req, nil); err != nil {
		return goerr.Wrap(err, "failed to upsert vector point",
			goerr.T(model.ErrTagIndex),
			goerr.V("vector_id", id))
	}
	return nil
}

func (q *QdrantClient) Query(ctx context.Context, vector []float32, topK int, filter *VectorFilter) ([]*VectorMatch, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if f := translateFilter(filter); f != nil {
		req["filter"] = f
	}

	var resp qdrantEnvelope[[]qdrantPoint]
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(q.collection))
	if err := q.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to query vector index",
			goerr.T(model.ErrTagIndex))
	}

	matches := make([]*VectorMatch, 0, len(resp.Result))
	for _, point := range resp.Result {
		matches = append(matches, &VectorMatch{
			ID:      pointIDString(point.ID),
			Score:   point.Score,
			Payload: point.Payload,
		})
	}
	return matches, nil
}

func (q *QdrantClient) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	req := map[string]any{"points": ids}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", url.PathEscape(q.collection))
	if err := q.do(ctx, http.MethodPost, path, req, nil); err != nil {
		return goerr.Wrap(err, "failed to delete vector points",
			goerr.T(model.ErrTagIndex),
			goerr.V("vector_ids", ids))
	}
	return nil
}

// translateFilter builds Qdrant's native must-clause predicate. Fields are
// ANDed; tags use an any-of match over the payload's tag array.
func translateFilter(filter *VectorFilter) map[string]any {
	if filter == nil {
		return nil
	}

	var must []map[string]any
	if filter.Type != "" {
		must = append(must, map[string]any{
			"key":   "type",
			"match": map[string]any{"value": filter.Type},
		})
	}
	if filter.Source != "" {
		must = append(must, map[string]any{
			"key":   "source",
			"match": map[string]any{"value": filter.Source},
		})
	}
	if len(filter.Tags) > 0 {
		must = append(must, map[string]any{
			"key":   "tags",
			"match": map[string]any{"any": filter.Tags},
		})
	}

	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

func (q *QdrantClient) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal qdrant request")
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, buf)
	if err != nil {
		return goerr.Wrap(err, "failed to build qdrant request")
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return goerr.Wrap(err, "qdrant request failed",
			goerr.V("method", method), goerr.V("path", path))
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		return goerr.New("qdrant returned an error response",
			goerr.V("method", method),
			goerr.V("path", path),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", strings.TrimSpace(string(payload))))
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return goerr.Wrap(err, "failed to unmarshal qdrant response")
		}
	}
	return nil
}

// pointIDString renders a Qdrant point id (UUID string or integer) as a
// string.
func pointIDString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return fmt.Sprintf("%d", n)
	}
	return string(raw)
}
