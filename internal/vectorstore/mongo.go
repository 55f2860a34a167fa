// Package vectorstore implements the vector store gateway on MongoDB.
// With an Atlas vector index the nearest-neighbor query runs server-side
// through $vectorSearch; without one it falls back to an exact in-process
// cosine scan, which keeps local and test deployments working on a plain
// mongod.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rag-backend/models"
)

type MongoStore struct {
	col           *mongo.Collection
	dims          int
	vectorEnabled bool
	vectorIndex   string
}

func NewMongoStore(client *mongo.Client, dbName, collection string, dims int, vectorEnabled bool, vectorIndex string) *MongoStore {
	return &MongoStore{
		col:           client.Database(dbName).Collection(collection),
		dims:          dims,
		vectorEnabled: vectorEnabled,
		vectorIndex:   vectorIndex,
	}
}

// Upsert writes the records keyed on (document_id, chunk_index) in one
// unordered bulk call. Existing records with the same key are overwritten,
// so retried and repeated ingests never duplicate.
func (s *MongoStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		if len(rec.Embedding) != s.dims {
			return fmt.Errorf("record %s#%d has dimensionality %d, collection expects %d",
				rec.DocumentID, rec.ChunkIndex, len(rec.Embedding), s.dims)
		}
		batch = append(batch, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"document_id": rec.DocumentID, "chunk_index": rec.ChunkIndex}).
			SetUpdate(bson.M{"$set": bson.M{
				"document_id": rec.DocumentID,
				"chunk_index": rec.ChunkIndex,
				"source":      rec.Source,
				"text":        rec.Text,
				"metadata":    rec.Metadata,
				"embedding":   rec.Embedding,
			}}).
			SetUpsert(true))
	}
	_, err := s.col.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false))
	return err
}

// Query returns the topK nearest records by cosine similarity, unordered
// guarantees beyond descending score left to the caller. The filter, when
// supplied, matches stored metadata fields.
func (s *MongoStore) Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]models.ScoredChunk, error) {
	if len(vector) != s.dims {
		return nil, fmt.Errorf("query vector has dimensionality %d, collection expects %d", len(vector), s.dims)
	}
	if topK < 1 {
		topK = 1
	}
	if s.vectorEnabled {
		return s.queryVectorSearch(ctx, vector, topK, filter)
	}
	return s.queryExact(ctx, vector, topK, filter)
}

func (s *MongoStore) queryVectorSearch(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]models.ScoredChunk, error) {
	search := bson.M{
		"index":         s.vectorIndex,
		"path":          "embedding",
		"queryVector":   vector,
		"numCandidates": topK * 10,
		"limit":         topK,
	}
	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: search}},
		{{Key: "$set", Value: bson.M{"score": bson.M{"$meta": "vectorSearchScore"}}}},
	}
	if len(filter) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: metadataFilter(filter)}})
	}

	cursor, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := make([]models.ScoredChunk, 0, topK)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// queryExact scans the collection and scores every record in process.
// Acceptable for development-sized collections; production deployments
// enable the Atlas index.
func (s *MongoStore) queryExact(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]models.ScoredChunk, error) {
	query := bson.M{}
	if len(filter) > 0 {
		query = metadataFilter(filter)
	}
	cursor, err := s.col.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var scored []models.ScoredChunk
	for cursor.Next(ctx) {
		var rec models.VectorRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		scored = append(scored, models.ScoredChunk{
			VectorRecord: rec,
			Score:        SearchScore(vector, rec.Embedding),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func metadataFilter(filter map[string]any) bson.M {
	match := bson.M{}
	for k, v := range filter {
		match["metadata."+k] = v
	}
	return match
}

// SearchScore maps the raw cosine onto [0,1], the range Atlas reports as
// vectorSearchScore for cosine indexes. Both query paths score through
// this, so one SIMILARITY_THRESHOLD value means the same cutoff whether or
// not the vector index is enabled.
func SearchScore(a, b []float32) float64 {
	return (1 + CosineSimilarity(a, b)) / 2
}

// CosineSimilarity returns the cosine of the angle between a and b, 0 when
// either vector is zero or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
