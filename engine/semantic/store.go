// Package semantic is the sole owner of all Qdrant operations for the tarot
// corpus: collection lifecycle, upserts from the offline indexer, and the
// filtered similarity searches the retriever issues.
package semantic

import (
	"context"
	"fmt"
	"strings"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// VectorStore wraps a Qdrant collection.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
// The returned store is safe for concurrent use; the underlying gRPC
// connection is pooled.
func New(addr string, collection string) (*VectorStore, error) {
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

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
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

	d := uint64(dims)
	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     d,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// Upsert stores passage records. Called by engine/ingest.
func (v *VectorStore) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: metaToPayload(r.Text, r.Meta),
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

// DeleteByCorpus removes every point of one corpus domain. Used by the
// offline indexer before a rebuild.
func (v *VectorStore) DeleteByCorpus(ctx context.Context, corpus string) error {
	wait := true
	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						fieldMatch("corpus", corpus),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: delete corpus %s: %w", corpus, err)
	}
	return nil
}

// SearchParams shapes one similarity query.
type SearchParams struct {
	TopK     int
	MinScore float32
	// Filters are ANDed keyword conditions on facet keys.
	Filters map[string]string
	// Corpora restricts hits to the listed corpus domains (ORed).
	Corpora []string
}

// Search performs k-NN similarity search with the given params.
func (v *VectorStore) Search(ctx context.Context, embedding []float32, p SearchParams) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(p.TopK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if p.MinScore > 0 {
		threshold := p.MinScore
		req.ScoreThreshold = &threshold
	}

	filter := &pb.Filter{}
	for k, val := range p.Filters {
		filter.Must = append(filter.Must, fieldMatch(k, val))
	}
	for _, c := range p.Corpora {
		filter.Should = append(filter.Should, fieldMatch("corpus", c))
	}
	if len(filter.Must) > 0 || len(filter.Should) > 0 {
		req.Filter = filter
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = resultFromScored(r)
	}
	return results, nil
}

func resultFromScored(r *pb.ScoredPoint) SearchResult {
	sr := SearchResult{
		ID:    r.GetId().GetUuid(),
		Score: r.GetScore(),
	}
	sr.Text, sr.Meta = payloadToMeta(r.GetPayload())
	return sr
}

// metaToPayload flattens text + metadata into a Qdrant payload.
func metaToPayload(text string, m ItemMeta) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		"text":   strValue(text),
		"corpus": strValue(m.Corpus),
	}
	if m.CardID != "" {
		payload["card_id"] = strValue(m.CardID)
	}
	if m.Orientation != "" {
		payload["orientation"] = strValue(m.Orientation)
	}
	if m.Domain != "" {
		payload["domain"] = strValue(m.Domain)
	}
	if m.Position != "" {
		payload["position"] = strValue(m.Position)
	}
	if len(m.Tags) > 0 {
		payload["tags"] = strValue(strings.Join(m.Tags, ","))
	}
	return payload
}

func payloadToMeta(payload map[string]*pb.Value) (string, ItemMeta) {
	var text string
	var m ItemMeta
	for k, val := range payload {
		s := val.GetStringValue()
		switch k {
		case "text":
			text = s
		case "corpus":
			m.Corpus = s
		case "card_id":
			m.CardID = s
		case "orientation":
			m.Orientation = s
		case "domain":
			m.Domain = s
		case "position":
			m.Position = s
		case "tags":
			if s != "" {
				m.Tags = strings.Split(s, ",")
			}
		}
	}
	return text, m
}

func strValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
