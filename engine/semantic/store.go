package semantic

import (
	"context"
	"fmt"
	"strconv"

	"github.com/WessleyAI/sector-rag/engine/domain"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type pointsClient interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	CreateFieldIndex(ctx context.Context, in *pb.CreateFieldIndexCollection, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
}

type collectionsClient interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore searches fragments stored in a Qdrant collection. The sector id
// lives in each point's payload and is indexed as a keyword.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsClient
	collections collectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients creates a VectorStore over existing gRPC clients.
func NewWithClients(points pointsClient, collections collectionsClient, collection string) *VectorStore {
	return &VectorStore{points: points, collections: collections, collection: collection}
}

// Close closes the underlying gRPC connection, if the store owns one.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureCollection creates the collection and its sector index if the
// collection doesn't exist.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{Size: uint64(dims), Distance: pb.Distance_Cosine},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}

	wait := true
	_, err = v.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
		CollectionName: v.collection,
		Wait:           &wait,
		FieldName:      keySector,
		FieldType:      pb.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("semantic: index %s.%s: %w", v.collection, keySector, err)
	}
	return nil
}

// DeleteCollection deletes the collection.
func (v *VectorStore) DeleteCollection(ctx context.Context) error {
	if _, err := v.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: v.collection}); err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
	}
	return nil
}

// Upsert stores records into Qdrant.
func (v *VectorStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		if r.SectorID == "" {
			return fmt.Errorf("semantic: upsert %s: %w", r.ID, ErrNoNamespace)
		}
		payload := make(map[string]*pb.Value, len(r.Metadata)+3)
		for k, val := range r.Metadata {
			payload[k] = toValue(val)
		}
		payload[keySector] = toValue(r.SectorID)
		payload[keyContent] = toValue(r.Content)
		payload[keySource] = toValue(r.SourceID)

		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: r.Vector}}},
			Payload: payload,
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// Search returns up to limit fragments of the namespace sector whose cosine
// similarity to vector is at least minScore, best first.
func (v *VectorStore) Search(ctx context.Context, vector []float32, namespace string, limit int, minScore float64) ([]domain.Fragment, error) {
	if namespace == "" {
		return nil, ErrNoNamespace
	}
	threshold := float32(minScore)
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		ScoreThreshold: &threshold,
		Filter:         &pb.Filter{Must: []*pb.Condition{fieldMatch(keySector, namespace)}},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search %s: %w", namespace, err)
	}

	fragments := make([]domain.Fragment, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		f := domain.Fragment{
			ID:         pointID(r.GetId()),
			Similarity: float64(r.GetScore()),
		}
		for k, val := range r.GetPayload() {
			switch k {
			case keyContent:
				f.Content = val.GetStringValue()
			case keySource:
				f.SourceID = val.GetStringValue()
			case keySector:
				// namespace, not metadata
			default:
				if f.Metadata == nil {
					f.Metadata = make(map[string]any)
				}
				f.Metadata[k] = fromValue(val)
			}
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}

func pointID(id *pb.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func toValue(v any) *pb.Value {
	switch tv := v.(type) {
	case nil:
		return &pb.Value{Kind: &pb.Value_NullValue{}}
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	case []string:
		values := make([]*pb.Value, len(tv))
		for i, s := range tv {
			values[i] = toValue(s)
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

func fromValue(v *pb.Value) any {
	switch k := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return k.StringValue
	case *pb.Value_IntegerValue:
		return k.IntegerValue
	case *pb.Value_DoubleValue:
		return k.DoubleValue
	case *pb.Value_BoolValue:
		return k.BoolValue
	case *pb.Value_ListValue:
		out := make([]any, len(k.ListValue.GetValues()))
		for i, item := range k.ListValue.GetValues() {
			out[i] = fromValue(item)
		}
		return out
	case *pb.Value_StructValue:
		out := make(map[string]any, len(k.StructValue.GetFields()))
		for name, item := range k.StructValue.GetFields() {
			out[name] = fromValue(item)
		}
		return out
	default:
		return nil
	}
}
