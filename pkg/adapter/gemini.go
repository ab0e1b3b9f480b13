package adapter

import (
	"context"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Embedder turns text into a fixed-length numeric vector. The vector
// dimension must match the vector index's configured dimension; a mismatch
// surfaces as an index error, not here.
type Embedder interface {
	Embedding(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the name of the model producing the embeddings,
	// recorded per memory for future re-embedding.
	ModelName() string
}

type GeminiClient struct {
	client         *genai.Client
	embeddingModel string
	dimension      int32
}

type GeminiOption func(*GeminiClient)

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = model
	}
}

// WithEmbeddingDimension sets the requested output dimensionality. Zero
// leaves the model default.
func WithEmbeddingDimension(dim int) GeminiOption {
	return func(g *GeminiClient) {
		g.dimension = int32(dim)
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client",
			goerr.T(model.ErrTagEmbedding))
	}

	g := &GeminiClient{
		client:         client,
		embeddingModel: "gemini-embedding-001",
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func (g *GeminiClient) Embedding(ctx context.Context, text string) ([]float32, error) {
	config := &genai.EmbedContentConfig{}
	if g.dimension > 0 {
		config.OutputDimensionality = &g.dimension
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content",
			goerr.T(model.ErrTagEmbedding))
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("embedding service returned no usable vector",
			goerr.T(model.ErrTagEmbedding),
			goerr.V("model", g.embeddingModel))
	}

	return resp.Embeddings[0].Values, nil
}

func (g *GeminiClient) ModelName() string {
	return g.embeddingModel
}
