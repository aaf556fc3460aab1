package semantic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/voyago/voyago-mvp/engine/domain"
)

// pointsClient is the slice of pb.PointsClient this store actually calls.
type pointsClient interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// collectionsClient is the slice of pb.CollectionsClient this store actually calls.
type collectionsClient interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// QdrantStore is the Store backend over a Qdrant collection. Qdrant builds
// its ANN structure server-side, so Build only ensures the collection and
// Save/Load are no-ops (durability is the server's job).
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pointsClient
	collections collectionsClient
	collection  string
	embedder    Embedder
	logger      *slog.Logger

	ensured bool
	count   int
}

// NewQdrantStore connects to Qdrant at the given gRPC address.
func NewQdrantStore(addr, collection string, embedder Embedder, logger *slog.Logger) (*QdrantStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	s := NewQdrantStoreWithClients(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), collection, embedder, logger)
	s.conn = conn
	return s, nil
}

// NewQdrantStoreWithClients builds a store over existing clients. Used in
// tests with mocks.
func NewQdrantStoreWithClients(points pointsClient, collections collectionsClient, collection string, embedder Embedder, logger *slog.Logger) *QdrantStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &QdrantStore{
		points:      points,
		collections: collections,
		collection:  collection,
		embedder:    embedder,
		logger:      logger,
	}
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Len returns how many chunks this store upserted in this session.
func (s *QdrantStore) Len() int { return s.count }

// ensureCollection creates the collection on first use if it doesn't exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	if s.ensured {
		return nil
	}
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			s.ensured = true
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.embedder.Dimension()),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", s.collection, err)
	}
	s.ensured = true
	return nil
}

// Add embeds chunks and upserts them as points. Point IDs are deterministic
// UUIDs from topic, chunk id, and source URL, so re-adding the same chunk
// overwrites instead of duplicating.
func (s *QdrantStore) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("semantic: embed batch: %w", err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("semantic: embedder returned %d vectors for %d chunks", len(vecs), len(chunks))
	}

	points := make([]*pb.PointStruct, len(chunks))
	for i, c := range chunks {
		seed := c.Meta[domain.MetaTopic] + "|" + c.Meta[domain.MetaChunkID] + "|" + c.SourceURL
		pointID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()

		payload := map[string]*pb.Value{
			"content":    {Kind: &pb.Value_StringValue{StringValue: c.Text}},
			"source_url": {Kind: &pb.Value_StringValue{StringValue: c.SourceURL}},
		}
		for k, v := range c.Meta {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}

		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vecs[i]},
				},
			},
			Payload: payload,
		}
	}

	wait := true
	if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(points), err)
	}
	s.count += len(chunks)
	return nil
}

// Build is satisfied by the server-side index; it only ensures the
// collection exists so a later Search doesn't fail on a fresh deployment.
func (s *QdrantStore) Build(ctx context.Context) error {
	if s.count == 0 {
		return nil
	}
	return s.ensureCollection(ctx)
}

// Search embeds the query and runs k-NN over the collection. The collection
// may hold points from earlier sessions, so Search never assumes Add ran
// first in this process.
func (s *QdrantStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	vecs, err := s.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("semantic: bad query embedding")
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vecs[0],
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		sr := SearchResult{
			Score: r.GetScore(),
			Meta:  make(map[string]string),
		}
		for key, val := range r.GetPayload() {
			v := val.GetStringValue()
			switch key {
			case "content":
				sr.Text = v
			case "source_url":
				sr.SourceURL = v
			default:
				sr.Meta[key] = v
			}
		}
		results[i] = sr
	}
	return results, nil
}

// Save is a no-op; Qdrant persists server-side.
func (s *QdrantStore) Save(string) error { return nil }

// Load is a no-op; Qdrant persists server-side.
func (s *QdrantStore) Load(string) error { return nil }
