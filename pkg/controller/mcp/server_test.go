package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/m-mizutani/engram/pkg/adapter"
	"github.com/m-mizutani/engram/pkg/repository"
	"github.com/m-mizutani/engram/pkg/service/ratelimit"
	"github.com/m-mizutani/engram/pkg/usecase/memory"
	"github.com/m-mizutani/gt"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func newTestServer(opts ...Option) *Server {
	uc := memory.New(
		repository.NewInMemory(),
		adapter.NewMockEmbedder(),
		adapter.NewMockIndex(),
	)
	return New(uc, opts...)
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	gt.A(t, result.Content).Length(1)
	text, ok := result.Content[0].(*mcp.TextContent)
	gt.True(t, ok)
	return text.Text
}

func TestHandleStoreAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestServer()

	result, structured, err := s.handleStore(ctx, nil, &storeParams{
		Text: "mitochondria is the powerhouse of the cell",
		Type: "learning",
		Tags: []string{"biology"},
	})
	gt.NoError(t, err)
	gt.True(t, !result.IsError)

	var stored map[string]any
	gt.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &stored))
	gt.Equal(t, stored["success"], true)
	gt.Equal[any](t, stored["memory_id"], float64(1))
	gt.NotNil(t, structured)

	result, _, err = s.handleSearch(ctx, nil, &searchParams{
		Query: "powerhouse of the cell",
	})
	gt.NoError(t, err)
	gt.True(t, !result.IsError)

	var searched struct {
		Results []*memoryItem `json:"results"`
	}
	gt.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &searched))
	gt.A(t, searched.Results).Longer(0)
	gt.Equal(t, searched.Results[0].ID, int64(1))
	gt.V(t, searched.Results[0].Score).NotNil()
}

func TestHandleList(t *testing.T) {
	ctx := context.Background()
	s := newTestServer()

	for _, text := range []string{"first", "second"} {
		result, _, err := s.handleStore(ctx, nil, &storeParams{Text: text, Type: "note"})
		gt.NoError(t, err)
		gt.True(t, !result.IsError)
	}

	result, _, err := s.handleList(ctx, nil, &listParams{Type: "note"})
	gt.NoError(t, err)
	gt.True(t, !result.IsError)

	var listed struct {
		Memories []*memoryItem `json:"memories"`
	}
	gt.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &listed))
	gt.A(t, listed.Memories).Length(2)
	for _, item := range listed.Memories {
		gt.True(t, item.Score == nil)
	}
}

func TestHandleDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestServer()

	result, _, err := s.handleStore(ctx, nil, &storeParams{Text: "x", Type: "note"})
	gt.NoError(t, err)
	gt.True(t, !result.IsError)

	result, _, err = s.handleDelete(ctx, nil, &deleteParams{MemoryID: 1})
	gt.NoError(t, err)
	gt.True(t, !result.IsError)

	result, _, err = s.handleDelete(ctx, nil, &deleteParams{MemoryID: 999})
	gt.NoError(t, err)
	gt.True(t, result.IsError)
	gt.S(t, resultText(t, result)).Contains("not found")
}

func TestHandleValidationError(t *testing.T) {
	ctx := context.Background()
	s := newTestServer()

	result, _, err := s.handleStore(ctx, nil, &storeParams{Text: "x", Type: "journal"})
	gt.NoError(t, err)
	gt.True(t, result.IsError)
	gt.S(t, resultText(t, result)).Contains("invalid input")

	result, _, err = s.handleSearch(ctx, nil, &searchParams{})
	gt.NoError(t, err)
	gt.True(t, result.IsError)
	gt.S(t, resultText(t, result)).Contains("invalid input")
}

func TestHandleRateLimited(t *testing.T) {
	ctx := context.Background()
	cache := adapter.NewMockCache()
	limiter := ratelimit.New(cache, 1, time.Minute)
	s := newTestServer(WithLimiter(limiter), WithClientID("tester"))

	result, _, err := s.handleList(ctx, nil, &listParams{})
	gt.NoError(t, err)
	gt.True(t, !result.IsError)

	result, _, err = s.handleList(ctx, nil, &listParams{})
	gt.NoError(t, err)
	gt.True(t, result.IsError)
	gt.S(t, resultText(t, result)).Contains("rate limit exceeded")
}

func TestBuildRegistersTools(t *testing.T) {
	s := newTestServer()
	gt.NotNil(t, s.build())
}
