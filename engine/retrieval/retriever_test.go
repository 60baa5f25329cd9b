package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
	"github.com/ArcanaLabs/arcana-engine/engine/semantic"
)

// --- mocks ---

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return m.vec, m.err
}

// mockStore serves a fixed corpus: similarity results for unfiltered
// queries, filter-matched facet items otherwise.
type mockStore struct {
	similar []semantic.SearchResult
	facet   []semantic.SearchResult
	err     error
	calls   []semantic.SearchParams
}

func (m *mockStore) Search(_ context.Context, _ []float32, p semantic.SearchParams) ([]semantic.SearchResult, error) {
	m.calls = append(m.calls, p)
	if m.err != nil {
		return nil, m.err
	}
	if len(p.Filters) == 0 {
		return m.similar, nil
	}
	var out []semantic.SearchResult
	for _, item := range m.facet {
		if facetMatches(item.Meta, p.Filters) {
			out = append(out, item)
			if len(out) >= p.TopK {
				break
			}
		}
	}
	return out, nil
}

func facetMatches(m semantic.ItemMeta, filters map[string]string) bool {
	for k, v := range filters {
		switch k {
		case "card_id":
			if m.CardID != v {
				return false
			}
		case "orientation":
			if m.Orientation != v {
				return false
			}
		case "domain":
			if m.Domain != v {
				return false
			}
		case "position":
			if m.Position != v {
				return false
			}
		}
	}
	return true
}

func facetItem(id, cardID, orientation, area, position string, score float32) semantic.SearchResult {
	return semantic.SearchResult{
		ID: id, Text: "passage " + id, Score: score,
		Meta: semantic.ItemMeta{Corpus: "tarot", CardID: cardID, Orientation: orientation, Domain: area, Position: position},
	}
}

func testDraws() []domain.Draw {
	return []domain.Draw{
		{CardID: "MAJOR_0", Orientation: domain.Upright, Domain: domain.AreaLove, Position: "past"},
		{CardID: "MAJOR_13", Orientation: domain.Reversed, Domain: domain.AreaLove, Position: "present"},
	}
}

// --- tests ---

func TestSearch_ForcedFacetCoverage(t *testing.T) {
	// Facet passages score near zero: similarity alone would never surface
	// them, the forced pass must.
	store := &mockStore{
		similar: []semantic.SearchResult{
			facetItem("sim-1", "MAJOR_7", "upright", "general", "", 0.91),
			facetItem("sim-2", "MAJOR_8", "upright", "general", "", 0.74),
		},
		facet: []semantic.SearchResult{
			facetItem("facet-fool", "MAJOR_0", "upright", "love", "past", 0.01),
			facetItem("facet-death", "MAJOR_13", "reversed", "love", "present", 0.02),
		},
	}
	r := New(&mockEmbedder{vec: []float32{0.1}}, store, DefaultOptions(), nil)

	draws := testDraws()
	got, err := r.Search(context.Background(), "연락이 올까요?", draws)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, d := range draws {
		found := false
		for _, item := range got {
			if item.Meta.CardID == d.CardID && item.Meta.Orientation == string(d.Orientation) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("draw %d (%s) has no matching item in result", i, d.CardID)
		}
	}

	// Forced items come first, in draw order.
	if got[0].ID != "facet-fool" || got[1].ID != "facet-death" {
		t.Fatalf("forced items out of order: %s, %s", got[0].ID, got[1].ID)
	}
	// Then similarity, descending.
	if got[2].ID != "sim-1" || got[3].ID != "sim-2" {
		t.Fatalf("similarity items out of order: %s, %s", got[2].ID, got[3].ID)
	}
}

func TestSearch_RelaxationOrder(t *testing.T) {
	// Only a passage without position exists for the first draw; only one
	// with a different domain for the second.
	store := &mockStore{
		facet: []semantic.SearchResult{
			facetItem("no-pos", "MAJOR_0", "upright", "love", "", 0.1),
			facetItem("other-area", "MAJOR_13", "reversed", "money", "present", 0.1),
		},
	}
	r := New(&mockEmbedder{vec: []float32{0.1}}, store, DefaultOptions(), nil)

	got, err := r.Search(context.Background(), "q", testDraws())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 forced items, got %d", len(got))
	}
	if got[0].ID != "no-pos" || got[0].Meta.Relaxed != "position" {
		t.Fatalf("expected position-relaxed hit first, got %+v", got[0])
	}
	// MAJOR_13 reversed exists only in money: position drop fails, domain
	// drop matches.
	if got[1].ID != "other-area" || got[1].Meta.Relaxed != "domain" {
		t.Fatalf("expected domain-relaxed hit, got %+v", got[1])
	}
}

func TestSearch_RelaxesOrientationLast(t *testing.T) {
	store := &mockStore{
		facet: []semantic.SearchResult{
			facetItem("only-upright", "MAJOR_13", "upright", "money", "outcome", 0.1),
		},
	}
	r := New(&mockEmbedder{vec: []float32{0.1}}, store, DefaultOptions(), nil)

	draws := []domain.Draw{{CardID: "MAJOR_13", Orientation: domain.Reversed, Domain: domain.AreaLove, Position: "present"}}
	got, err := r.Search(context.Background(), "q", draws)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Meta.Relaxed != "orientation" {
		t.Fatalf("expected orientation-relaxed hit, got %+v", got)
	}
}

func TestSearch_DedupesByID(t *testing.T) {
	shared := facetItem("shared", "MAJOR_0", "upright", "love", "past", 0.95)
	store := &mockStore{
		similar: []semantic.SearchResult{shared},
		facet:   []semantic.SearchResult{shared},
	}
	r := New(&mockEmbedder{vec: []float32{0.1}}, store, DefaultOptions(), nil)

	draws := []domain.Draw{{CardID: "MAJOR_0", Orientation: domain.Upright, Domain: domain.AreaLove, Position: "past"}}
	got, err := r.Search(context.Background(), "q", draws)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected deduped single item, got %d", len(got))
	}
}

func TestSearch_TruncatesToTopKPlusDraws(t *testing.T) {
	var similar []semantic.SearchResult
	for i := 0; i < 20; i++ {
		similar = append(similar, facetItem(fmt.Sprintf("sim-%02d", i), "MAJOR_5", "upright", "general", "", float32(20-i)/20))
	}
	store := &mockStore{
		similar: similar,
		facet: []semantic.SearchResult{
			facetItem("facet-fool", "MAJOR_0", "upright", "love", "past", 0.01),
		},
	}
	opts := DefaultOptions()
	opts.TopK = 5
	r := New(&mockEmbedder{vec: []float32{0.1}}, store, opts, nil)

	draws := []domain.Draw{{CardID: "MAJOR_0", Orientation: domain.Upright, Domain: domain.AreaLove, Position: "past"}}
	got, err := r.Search(context.Background(), "q", draws)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 6 { // topK + len(draws)
		t.Fatalf("expected 6 items, got %d", len(got))
	}
	if got[0].ID != "facet-fool" {
		t.Fatal("forced item must survive truncation")
	}
}

func TestSearch_StorageOutage(t *testing.T) {
	store := &mockStore{err: errors.New("connection refused")}
	r := New(&mockEmbedder{vec: []float32{0.1}}, store, DefaultOptions(), nil)

	got, err := r.Search(context.Background(), "q", testDraws())
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result on outage, got %d", len(got))
	}
}

func TestSearch_EmbedFailure(t *testing.T) {
	r := New(&mockEmbedder{err: errors.New("model not loaded")}, &mockStore{}, DefaultOptions(), nil)
	_, err := r.Search(context.Background(), "q", nil)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestSearch_SimilarityPassUsesMinScore(t *testing.T) {
	store := &mockStore{}
	opts := DefaultOptions()
	opts.MinScore = 0.22
	r := New(&mockEmbedder{vec: []float32{0.1}}, store, opts, nil)

	draws := []domain.Draw{{CardID: "MAJOR_0", Orientation: domain.Upright, Domain: domain.AreaLove, Position: "past"}}
	if _, err := r.Search(context.Background(), "q", draws); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.calls[0].MinScore != 0.22 {
		t.Fatalf("similarity pass MinScore = %f", store.calls[0].MinScore)
	}
	// Facet queries carry no score threshold: injection is unconditional.
	for _, call := range store.calls[1:] {
		if call.MinScore != 0 {
			t.Fatalf("facet pass must not set MinScore, got %f", call.MinScore)
		}
	}
}

func TestSearch_Timeout(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = time.Nanosecond
	slow := &slowEmbedder{}
	r := New(slow, &mockStore{}, opts, nil)

	_, err := r.Search(context.Background(), "q", nil)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable on timeout, got %v", err)
	}
}

type slowEmbedder struct{}

func (s *slowEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
		return []float32{0.1}, nil
	}
}
