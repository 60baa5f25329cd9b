// Package archetype maintains the cross-tradition symbol graph: tarot cards,
// saju elements, and astrology signs linked by CROSS_REF edges in Neo4j.
package archetype

// System identifies the divination tradition an archetype belongs to.
type System string

const (
	SystemTarot System = "tarot"
	SystemSaju  System = "saju"
	SystemAstro System = "astro"
)

// Archetype is one symbol node in the cross-reference graph.
type Archetype struct {
	ID       string   `json:"id"`
	System   System   `json:"system"`
	Name     string   `json:"name"`
	NameKo   string   `json:"name_ko,omitempty"`
	CardID   string   `json:"card_id,omitempty"` // set for tarot nodes only
	Element  string   `json:"element,omitempty"` // fire, water, wood, metal, earth, air
	Keywords []string `json:"keywords,omitempty"`
}

// CrossRef links two archetypes across traditions.
type CrossRef struct {
	FromID   string  `json:"from_id"`
	ToID     string  `json:"to_id"`
	Relation string  `json:"relation"` // resonates, opposes, tempers
	Weight   float64 `json:"weight"`
}

// Linked is a cross-referenced archetype together with its edge data,
// as returned by traversal queries.
type Linked struct {
	Archetype Archetype `json:"archetype"`
	Relation  string    `json:"relation"`
	Weight    float64   `json:"weight"`
}
