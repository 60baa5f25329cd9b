package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
	"github.com/ArcanaLabs/arcana-engine/engine/semantic"
)

type mockEmbedder struct {
	batches [][]string
	err     error
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batches = append(m.batches, texts)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 0.5}
	}
	return out, nil
}

type mockUpserter struct {
	records []semantic.VectorRecord
	err     error
}

func (m *mockUpserter) Upsert(_ context.Context, records []semantic.VectorRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, records...)
	return nil
}

func validEntry() CorpusEntry {
	return CorpusEntry{
		Corpus:      "tarot",
		EntryID:     "tarot-major0-upright-love",
		CardID:      "MAJOR_0",
		Orientation: "upright",
		Domain:      "love",
		Text:        "광대 카드는 새로운 시작을 뜻합니다. 연애에서는 설렘이 찾아옵니다.",
		Tags:        []string{"beginnings"},
		Source:      "editorial",
	}
}

func TestValidateStage(t *testing.T) {
	cards := domain.NewCardCatalog()
	validate := NewValidate(cards)

	if r := validate(context.Background(), validEntry()); r.IsErr() {
		_, err := r.Unwrap()
		t.Fatalf("valid entry rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*CorpusEntry)
	}{
		{"unknown corpus", func(e *CorpusEntry) { e.Corpus = "runes" }},
		{"missing entry id", func(e *CorpusEntry) { e.EntryID = "" }},
		{"missing text", func(e *CorpusEntry) { e.Text = "" }},
		{"unknown card", func(e *CorpusEntry) { e.CardID = "MAJOR_99" }},
		{"bad orientation", func(e *CorpusEntry) { e.Orientation = "sideways" }},
		{"bad life area", func(e *CorpusEntry) { e.Domain = "health" }},
	}
	for _, c := range cases {
		e := validEntry()
		c.mutate(&e)
		r := validate(context.Background(), e)
		if !r.IsErr() {
			t.Errorf("%s: expected rejection", c.name)
			continue
		}
		_, err := r.Unwrap()
		if !domain.IsValidationError(err) {
			t.Errorf("%s: err = %v, want ValidationError", c.name, err)
		}
	}
}

func TestValidateAllowsFacetlessEntries(t *testing.T) {
	validate := NewValidate(domain.NewCardCatalog())
	e := CorpusEntry{Corpus: "saju", EntryID: "saju-wood", Text: "목 기운은 성장입니다."}
	if r := validate(context.Background(), e); r.IsErr() {
		_, err := r.Unwrap()
		t.Fatalf("facetless entry rejected: %v", err)
	}
}

func TestChunkStageShortText(t *testing.T) {
	r := ChunkStage(context.Background(), validEntry())
	ce, err := r.Unwrap()
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(ce.Chunks) != 1 {
		t.Fatalf("short text chunks = %d, want 1", len(ce.Chunks))
	}
	if ce.Chunks[0].EntryID != "tarot-major0-upright-love" || ce.Chunks[0].Index != 0 {
		t.Fatalf("chunk identity wrong: %+v", ce.Chunks[0])
	}
}

func TestChunkEntryLongText(t *testing.T) {
	long := strings.Repeat("This sentence pads the corpus entry with tokens. ", 80)
	chunks := chunkEntry("e1", long, DefaultChunkSize, DefaultOverlap)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk %d has index %d", i, c.Index)
		}
		if c.Text == "" {
			t.Fatalf("chunk %d empty", i)
		}
	}
}

func TestSplitSentencesCJK(t *testing.T) {
	got := splitSentences("첫 문장입니다。둘째 문장입니다！마무리")
	if len(got) != 3 {
		t.Fatalf("sentences = %v", got)
	}
	// Latin punctuation inside a number must not split.
	got = splitSentences("Version 3.5 works. Next sentence.")
	if len(got) != 2 {
		t.Fatalf("sentences = %v", got)
	}
}

func TestEmbedStageAlignsVectors(t *testing.T) {
	emb := &mockEmbedder{}
	stage := NewEmbed(emb)

	ce := ChunkedEntry{
		Entry:  validEntry(),
		Chunks: []Chunk{{Text: "a", Index: 0}, {Text: "b", Index: 1}},
	}
	r := stage(context.Background(), ce)
	ee, err := r.Unwrap()
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(ee.Embeddings) != 2 {
		t.Fatalf("embeddings = %d", len(ee.Embeddings))
	}
	if len(emb.batches) != 1 || len(emb.batches[0]) != 2 {
		t.Fatalf("batching wrong: %v", emb.batches)
	}
}

func TestEmbedStageError(t *testing.T) {
	stage := NewEmbed(&mockEmbedder{err: errors.New("ollama down")})
	r := stage(context.Background(), ChunkedEntry{Chunks: []Chunk{{Text: "a"}}})
	if !r.IsErr() {
		t.Fatal("expected embed error")
	}
}

func TestStoreStageBuildsRecords(t *testing.T) {
	up := &mockUpserter{}
	stage := NewStore(up)

	entry := validEntry()
	ee := EmbeddedEntry{
		ChunkedEntry: ChunkedEntry{
			Entry:  entry,
			Chunks: []Chunk{{Text: "passage", Index: 0, EntryID: entry.EntryID}},
		},
		Embeddings: [][]float32{{0.1, 0.2}},
	}
	r := stage(context.Background(), ee)
	id, err := r.Unwrap()
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if id != entry.EntryID {
		t.Fatalf("returned id = %q", id)
	}
	rec := up.records[0]
	if rec.ID != PointID(entry.EntryID, 0) {
		t.Fatal("point id must be deterministic")
	}
	if rec.Meta.Corpus != "tarot" || rec.Meta.CardID != "MAJOR_0" || rec.Meta.Orientation != "upright" {
		t.Fatalf("meta = %+v", rec.Meta)
	}
}

func TestStoreStageError(t *testing.T) {
	stage := NewStore(&mockUpserter{err: errors.New("qdrant down")})
	ee := EmbeddedEntry{
		ChunkedEntry: ChunkedEntry{Chunks: []Chunk{{Text: "x"}}},
		Embeddings:   [][]float32{{0.1}},
	}
	if r := stage(context.Background(), ee); !r.IsErr() {
		t.Fatal("expected upsert error")
	}
}

func TestPointIDDeterministic(t *testing.T) {
	if PointID("e1", 0) != PointID("e1", 0) {
		t.Fatal("point id must be stable")
	}
	if PointID("e1", 0) == PointID("e1", 1) {
		t.Fatal("chunk index must differentiate point ids")
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	up := &mockUpserter{}
	pipeline := NewPipeline(Deps{
		Embedder: &mockEmbedder{},
		Store:    up,
		Cards:    domain.NewCardCatalog(),
	})

	r := pipeline(context.Background(), validEntry())
	id, err := r.Unwrap()
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if id != "tarot-major0-upright-love" {
		t.Fatalf("id = %q", id)
	}
	if len(up.records) == 0 {
		t.Fatal("nothing stored")
	}
}

func TestPipelineRejectsInvalidEntry(t *testing.T) {
	pipeline := NewPipeline(Deps{
		Embedder: &mockEmbedder{},
		Store:    &mockUpserter{},
		Cards:    domain.NewCardCatalog(),
	})

	e := validEntry()
	e.CardID = "MAJOR_99"
	r := pipeline(context.Background(), e)
	if !r.IsErr() {
		t.Fatal("expected validation failure")
	}
}
