package ingest

import "github.com/ArcanaLabs/arcana-engine/engine/semantic"

// CorpusEntry is one source passage for the interpretation corpus, as
// submitted by the offline indexer or the ingest subject.
type CorpusEntry struct {
	// Corpus is the corpus domain the passage belongs to: tarot, saju, astro.
	Corpus string `json:"corpus"`
	// EntryID identifies the source passage; chunk point ids derive from it.
	EntryID string `json:"entry_id"`
	// CardID plus the optional facets below form the passage's facet tuple.
	CardID      string   `json:"card_id,omitempty"`
	Orientation string   `json:"orientation,omitempty"`
	Domain      string   `json:"domain,omitempty"`
	Position    string   `json:"position,omitempty"`
	Text        string   `json:"text"`
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// Chunk is one embeddable slice of an entry's text.
type Chunk struct {
	Text    string
	Index   int
	EntryID string
}

// ChunkedEntry pairs an entry with its chunks.
type ChunkedEntry struct {
	Entry  CorpusEntry
	Chunks []Chunk
}

// EmbeddedEntry adds one embedding per chunk, index-aligned.
type EmbeddedEntry struct {
	ChunkedEntry
	Embeddings [][]float32
}

// meta returns the vector payload metadata shared by all of an entry's chunks.
func (e CorpusEntry) meta() semantic.ItemMeta {
	return semantic.ItemMeta{
		Corpus:      e.Corpus,
		CardID:      e.CardID,
		Orientation: e.Orientation,
		Domain:      e.Domain,
		Position:    e.Position,
		Tags:        e.Tags,
	}
}
