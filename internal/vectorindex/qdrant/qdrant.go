// Package qdrant backs the vector index with a Qdrant instance over gRPC.
// Build recreates the collection, so a rebuild never leaves stale points
// behind; ordinals travel in point payloads so query results map back to the
// in-process chunk corpus.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"paperqa/internal/domain"
)

const ordinalKey = "ordinal"

// Index implements domain.VectorIndex against a Qdrant collection.
type Index struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	size        int
}

// New connects to Qdrant at host:port. The collection is created on the
// first Build, not here.
func New(host string, port int, collection string) (*Index, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Index{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Build drops and recreates the collection, then bulk-upserts all vectors.
// Readers of the previous corpus snapshot are expected to have drained; the
// pipeline sequences Build strictly before queries.
func (x *Index) Build(ctx context.Context, vectors [][]float32) error {
	dim := 0
	for _, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) == 0 || len(v) != dim {
			return fmt.Errorf("vector dimension mismatch")
		}
	}
	if _, err := x.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: x.collection}); err != nil {
		return fmt.Errorf("qdrant delete collection: %w", err)
	}
	if len(vectors) == 0 {
		x.size = 0
		return nil
	}
	_, err := x.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(dim), Distance: pb.Distance_Euclid},
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	points := make([]*pb.PointStruct, len(vectors))
	for i, v := range vectors {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: uuid.New().String()}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: v}}},
			Payload: map[string]*pb.Value{
				ordinalKey: {Kind: &pb.Value_IntegerValue{IntegerValue: int64(i)}},
			},
		}
	}
	if _, err := x.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: x.collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	x.size = len(vectors)
	return nil
}

// Query returns the k nearest points, closest first. Qdrant reports the
// Euclidean distance as the score for Euclid collections; ordering matches
// the flat index.
func (x *Index) Query(ctx context.Context, vector []float32, k int) ([]domain.Hit, error) {
	if x.size == 0 {
		return nil, nil
	}
	if k <= 0 || k > x.size {
		k = x.size
	}
	resp, err := x.points.Search(ctx, &pb.SearchPoints{
		CollectionName: x.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	hits := make([]domain.Hit, len(resp.Result))
	for i, pt := range resp.Result {
		hits[i] = domain.Hit{
			Ordinal:  int(pt.Payload[ordinalKey].GetIntegerValue()),
			Distance: pt.Score,
		}
	}
	return hits, nil
}

// Len returns the number of vectors in the current corpus snapshot.
func (x *Index) Len() int { return x.size }

// Close releases the gRPC connection.
func (x *Index) Close() error { return x.conn.Close() }
