package qdrant

import (
	"context"
	"fmt"
	"sync"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

// GRPCClient is the gRPC transport of the vector index.
type GRPCClient struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string

	ensureMu sync.Mutex
	ensured  bool
}

func NewGRPC(addr, collection string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", addr, err)
	}
	client := newGRPCClient(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), collection)
	client.conn = conn
	return client, nil
}

func newGRPCClient(points pb.PointsClient, collections pb.CollectionsClient, collection string) *GRPCClient {
	return &GRPCClient{
		points:      points,
		collections: collections,
		collection:  collection,
	}
}

func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *GRPCClient) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(docs) != len(vectors) {
		return fmt.Errorf("docs/vectors mismatch: %d/%d", len(docs), len(vectors))
	}
	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	points := make([]*pb.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(doc.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vectors[i]},
				},
			},
			Payload: toGRPCPayload(documentPayload(doc)),
		}
	}

	wait := true
	_, err := c.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: c.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant grpc upsert %d points: %w", len(points), err)
	}
	return nil
}

func (c *GRPCClient) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Document, error) {
	resp, err := c.points.Search(ctx, &pb.SearchPoints{
		CollectionName: c.collection,
		Vector:         queryVector,
		Limit:          uint64(max(limit, 0)),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return []domain.Document{}, nil
		}
		return nil, fmt.Errorf("qdrant grpc search: %w", err)
	}

	out := make([]domain.Document, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		payload := make(map[string]any, len(point.GetPayload()))
		for key, value := range point.GetPayload() {
			payload[key] = value.GetStringValue()
		}
		doc := documentFromPayload(payload)
		if doc.ID == "" {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *GRPCClient) ensureCollection(ctx context.Context, dims int) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensured {
		return nil
	}

	list, err := c.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant grpc list collections: %w", err)
	}
	for _, existing := range list.GetCollections() {
		if existing.GetName() == c.collection {
			c.ensured = true
			return nil
		}
	}

	_, err = c.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant grpc create collection %s: %w", c.collection, err)
	}
	c.ensured = true
	return nil
}

func toGRPCPayload(payload map[string]any) map[string]*pb.Value {
	out := make(map[string]*pb.Value, len(payload))
	for key, value := range payload {
		switch v := value.(type) {
		case string:
			out[key] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		case int:
			out[key] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(v)}}
		default:
			out[key] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(v)}}
		}
	}
	return out
}
