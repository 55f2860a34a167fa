package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the application meters.
type Metrics struct {
	IngestRequests    metric.Int64Counter
	ChunksIngested    metric.Int64Counter
	ChatRequests      metric.Int64Counter
	RetrievalDuration metric.Float64Histogram
	ChatDuration      metric.Float64Histogram
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("rag-backend")

	ingestRequests, err := meter.Int64Counter("rag.ingest.requests",
		metric.WithDescription("Ingest requests by outcome"))
	if err != nil {
		return nil, err
	}
	chunksIngested, err := meter.Int64Counter("rag.ingest.chunks",
		metric.WithDescription("Chunks written to the vector store"))
	if err != nil {
		return nil, err
	}
	chatRequests, err := meter.Int64Counter("rag.chat.requests",
		metric.WithDescription("Chat requests by outcome"))
	if err != nil {
		return nil, err
	}
	retrievalDuration, err := meter.Float64Histogram("rag.retrieval.duration_ms",
		metric.WithDescription("Nearest-neighbor retrieval latency"))
	if err != nil {
		return nil, err
	}
	chatDuration, err := meter.Float64Histogram("rag.chat.duration_ms",
		metric.WithDescription("End-to-end chat request latency"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		IngestRequests:    ingestRequests,
		ChunksIngested:    chunksIngested,
		ChatRequests:      chatRequests,
		RetrievalDuration: retrievalDuration,
		ChatDuration:      chatDuration,
	}, nil
}

// RecordOutcome increments counter tagged with the request outcome.
func RecordOutcome(ctx context.Context, counter metric.Int64Counter, outcome string) {
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
