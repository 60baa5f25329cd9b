package semantic

import (
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
)

func TestMetaPayloadRoundTrip(t *testing.T) {
	meta := ItemMeta{
		Corpus:      "tarot",
		CardID:      "MAJOR_0",
		Orientation: "upright",
		Domain:      "love",
		Position:    "present",
		Tags:        []string{"beginning", "journey"},
	}
	payload := metaToPayload("The Fool opens a chapter.", meta)

	text, got := payloadToMeta(payload)
	if text != "The Fool opens a chapter." {
		t.Fatalf("text = %q", text)
	}
	if got.CardID != meta.CardID || got.Orientation != meta.Orientation ||
		got.Domain != meta.Domain || got.Position != meta.Position {
		t.Fatalf("facet mismatch: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "beginning" {
		t.Fatalf("tags mismatch: %+v", got.Tags)
	}
	if !got.IsFacetItem() {
		t.Fatal("all four facet keys set, expected facet item")
	}
}

func TestMetaToPayload_OmitsEmptyFacetKeys(t *testing.T) {
	payload := metaToPayload("general passage", ItemMeta{Corpus: "tarot", CardID: "MAJOR_1"})
	if _, ok := payload["position"]; ok {
		t.Fatal("empty position must not be stored")
	}
	if _, ok := payload["domain"]; ok {
		t.Fatal("empty domain must not be stored")
	}
	_, meta := payloadToMeta(payload)
	if meta.IsFacetItem() {
		t.Fatal("partial metadata must not be a facet item")
	}
}

func TestFieldMatch(t *testing.T) {
	cond := fieldMatch("card_id", "MAJOR_0")
	field := cond.GetField()
	if field.GetKey() != "card_id" {
		t.Fatalf("key = %q", field.GetKey())
	}
	if kw := field.GetMatch().GetKeyword(); kw != "MAJOR_0" {
		t.Fatalf("keyword = %q", kw)
	}
}

func TestResultFromScored(t *testing.T) {
	scored := &pb.ScoredPoint{
		Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "abc-123"}},
		Score: 0.42,
		Payload: map[string]*pb.Value{
			"text":    strValue("passage"),
			"corpus":  strValue("tarot"),
			"card_id": strValue("MAJOR_13"),
		},
	}
	r := resultFromScored(scored)
	if r.ID != "abc-123" || r.Score != 0.42 || r.Text != "passage" || r.Meta.CardID != "MAJOR_13" {
		t.Fatalf("unexpected result: %+v", r)
	}
}
