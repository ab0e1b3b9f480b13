package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/service/ratelimit"
	"github.com/m-mizutani/engram/pkg/usecase/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server exposes the memory substrate as MCP tools over stdio. It is a thin
// shim: admission check, argument mapping, and error translation; all
// semantics live in the usecase.
type Server struct {
	uc       *memory.UseCase
	limiter  *ratelimit.Limiter
	clientID string
	version  string
}

type Option func(*Server)

// WithLimiter enables admission control in front of every tool call.
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(s *Server) {
		s.limiter = limiter
	}
}

// WithClientID sets the rate-limit identifier for this transport. Stdio has
// no peer address, so the identity is configured rather than derived.
func WithClientID(id string) Option {
	return func(s *Server) {
		s.clientID = id
	}
}

func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

func New(uc *memory.UseCase, opts ...Option) *Server {
	s := &Server{
		uc:       uc,
		clientID: "local",
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves MCP over stdio until ctx is cancelled or the client hangs up.
func (s *Server) Run(ctx context.Context) error {
	server := s.build()
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "mcp server failed")
	}
	return nil
}

func (s *Server) build() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "engram",
		Version: s.version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "store_memory",
		Description: "Store a text memory with a category type and optional source, tags and metadata",
		InputSchema: storeSchema(),
	}, s.handleStore)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_memory",
		Description: "Search stored memories by semantic similarity, with optional type/source/tags filters",
		InputSchema: searchSchema(),
	}, s.handleSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_memories",
		Description: "List stored memories newest first, optionally filtered by type and source",
		InputSchema: listSchema(),
	}, s.handleList)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_memory",
		Description: "Delete a stored memory by its ID",
		InputSchema: deleteSchema(),
	}, s.handleDelete)

	return server
}

type storeParams struct {
	Text     string         `json:"text"`
	Type     string         `json:"type"`
	Source   string         `json:"source,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type searchParams struct {
	Query   string        `json:"query"`
	Limit   int           `json:"limit,omitempty"`
	Filters *searchFilter `json:"filters,omitempty"`
}

type searchFilter struct {
	Type   string   `json:"type,omitempty"`
	Source string   `json:"source,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

type listParams struct {
	Type   string `json:"type,omitempty"`
	Source string `json:"source,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

type deleteParams struct {
	MemoryID int64 `json:"memory_id"`
}

// memoryItem is the per-memory shape shared by search and list results.
// Score is present only for search.
type memoryItem struct {
	ID        int64          `json:"id"`
	Text      string         `json:"text"`
	Score     *float64       `json:"score,omitempty"`
	Type      string         `json:"type"`
	Source    string         `json:"source,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (s *Server) handleStore(ctx context.Context, req *mcp.CallToolRequest, params *storeParams) (*mcp.CallToolResult, any, error) {
	if denied := s.admit(ctx); denied != nil {
		return denied, nil, nil
	}

	out, err := s.uc.Store(ctx, &model.StoreMemoryInput{
		Text:     params.Text,
		Type:     model.MemoryType(params.Type),
		Source:   params.Source,
		Tags:     params.Tags,
		Metadata: model.Metadata(params.Metadata),
	})
	if err != nil {
		return errorResult(err), nil, nil
	}

	return jsonResult(map[string]any{
		"success":   true,
		"memory_id": int64(out.MemoryID),
		"vector_id": out.VectorID,
	})
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, params *searchParams) (*mcp.CallToolResult, any, error) {
	if denied := s.admit(ctx); denied != nil {
		return denied, nil, nil
	}

	input := &model.SearchMemoryInput{
		Query: params.Query,
		Limit: params.Limit,
	}
	if params.Filters != nil {
		input.Filters = model.SearchFilters{
			Type:   model.MemoryType(params.Filters.Type),
			Source: params.Filters.Source,
			Tags:   params.Filters.Tags,
		}
	}

	results, err := s.uc.Search(ctx, input)
	if err != nil {
		return errorResult(err), nil, nil
	}

	items := make([]*memoryItem, 0, len(results))
	for _, result := range results {
		item := toMemoryItem(result.Memory)
		score := result.Score
		item.Score = &score
		items = append(items, item)
	}
	return jsonResult(map[string]any{"results": items})
}

func (s *Server) handleList(ctx context.Context, req *mcp.CallToolRequest, params *listParams) (*mcp.CallToolResult, any, error) {
	if denied := s.admit(ctx); denied != nil {
		return denied, nil, nil
	}

	memories, err := s.uc.List(ctx, &model.ListMemoriesInput{
		Type:   model.MemoryType(params.Type),
		Source: params.Source,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}

	items := make([]*memoryItem, 0, len(memories))
	for _, mem := range memories {
		items = append(items, toMemoryItem(mem))
	}
	return jsonResult(map[string]any{"memories": items})
}

func (s *Server) handleDelete(ctx context.Context, req *mcp.CallToolRequest, params *deleteParams) (*mcp.CallToolResult, any, error) {
	if denied := s.admit(ctx); denied != nil {
		return denied, nil, nil
	}

	err := s.uc.Delete(ctx, &model.DeleteMemoryInput{
		MemoryID: model.MemoryID(params.MemoryID),
	})
	if err != nil {
		return errorResult(err), nil, nil
	}

	return jsonResult(map[string]any{"success": true})
}

// admit runs the admission check. Returns a throttling result when denied,
// nil when the request may proceed or no limiter is configured.
func (s *Server) admit(ctx context.Context) *mcp.CallToolResult {
	if s.limiter == nil {
		return nil
	}

	decision := s.limiter.Admit(ctx, s.clientID)
	if decision.Allowed {
		return nil
	}

	retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
	text := fmt.Sprintf(
		"rate limit exceeded: limit %d, remaining %d, resets at %s, retry after %ds",
		decision.Limit, decision.Remaining,
		decision.ResetAt.UTC().Format(time.RFC3339), retryAfter)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toMemoryItem(mem *model.Memory) *memoryItem {
	return &memoryItem{
		ID:        int64(mem.ID),
		Text:      mem.Text,
		Type:      string(mem.Type),
		Source:    mem.Source,
		Tags:      mem.Tags,
		Metadata:  mem.Metadata,
		CreatedAt: mem.CreatedAt,
	}
}

func jsonResult(value any) (*mcp.CallToolResult, any, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return errorResult(goerr.Wrap(err, "failed to encode tool result")), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(encoded)}},
	}, value, nil
}

// errorResult maps the error taxonomy onto tool errors: validation and
// not-found failures are client-correctable, everything else is reported as
// a server-side failure.
func errorResult(err error) *mcp.CallToolResult {
	var text string
	switch {
	case goerr.HasTag(err, model.ErrTagInvalidInput):
		text = "invalid input: " + err.Error()
	case goerr.HasTag(err, model.ErrTagNotFound):
		text = "not found: " + err.Error()
	case goerr.HasTag(err, model.ErrTagEmbedding):
		text = "embedding service error: " + err.Error()
	case goerr.HasTag(err, model.ErrTagIndex):
		text = "vector index error: " + err.Error()
	case goerr.HasTag(err, model.ErrTagStore):
		text = "storage error: " + err.Error()
	default:
		text = "internal error: " + err.Error()
	}

	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
