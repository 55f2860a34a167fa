package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"
)

// GeminiEmbedder converts text into fixed-length vectors using the Google
// Generative AI embedding models. One embedder is constructed at process
// start and shared; the same model must be used for ingest and query, since
// mixing models changes the vector space.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dims   int
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dims int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiEmbedder{client: client, model: model, dims: dims}, nil
}

// Embed returns the embedding vector for text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("embedding-gateway")
	ctx, span := tracer.Start(ctx, "embeddings.embed_content")
	defer span.End()
	span.SetAttributes(
		attribute.String("embeddings.model", e.model),
		attribute.Int("embeddings.text_len", len(text)),
	)

	model := e.client.EmbeddingModel(e.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		span.SetAttributes(attribute.Bool("embeddings.error", true))
		return nil, err
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embedding.Values, nil
}

// Dimensions reports the collection's expected vector width.
func (e *GeminiEmbedder) Dimensions() int { return e.dims }

func (e *GeminiEmbedder) Close() error { return e.client.Close() }
