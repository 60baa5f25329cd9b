package semantic

// ItemMeta is the corpus metadata attached to every indexed passage.
// Corpus names the corpus domain (e.g. "tarot"); the remaining keys are the
// facet tuple. An item with all four facet keys set is a facet item.
type ItemMeta struct {
	Corpus      string   `json:"corpus"`
	CardID      string   `json:"card_id"`
	Orientation string   `json:"orientation"`
	Domain      string   `json:"domain"`
	Position    string   `json:"position,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Relaxed names the facet key dropped to find this item during a
	// forced-facet pass; empty for exact matches and similarity hits.
	Relaxed string `json:"relaxed,omitempty"`
}

// IsFacetItem reports whether every facet key is set.
func (m ItemMeta) IsFacetItem() bool {
	return m.CardID != "" && m.Orientation != "" && m.Domain != "" && m.Position != ""
}

// SearchResult is a single vector search hit.
type SearchResult struct {
	ID    string   `json:"id"`
	Text  string   `json:"text"`
	Score float32  `json:"score"`
	Meta  ItemMeta `json:"metadata"`
}

// VectorRecord is a single passage to index.
type VectorRecord struct {
	ID        string
	Text      string
	Embedding []float32
	Meta      ItemMeta
}
