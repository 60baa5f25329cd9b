// Package domain defines core domain types, catalogs, and validation for the
// Arcana engine pipeline. It acts as the validation gate at pipeline entry points.
package domain

// Orientation is the way a drawn card faces.
type Orientation string

const (
	Upright  Orientation = "upright"
	Reversed Orientation = "reversed"
)

// ValidOrientations is the set of recognised orientations.
var ValidOrientations = map[Orientation]bool{
	Upright: true, Reversed: true,
}

// LifeArea is the question's life area attached to a single draw.
type LifeArea string

const (
	AreaLove    LifeArea = "love"
	AreaCareer  LifeArea = "career"
	AreaMoney   LifeArea = "money"
	AreaGeneral LifeArea = "general"
)

// ValidLifeAreas is the set of recognised life areas.
var ValidLifeAreas = map[LifeArea]bool{
	AreaLove: true, AreaCareer: true, AreaMoney: true, AreaGeneral: true,
}

// Theme classifies a user question at the spread-catalog level.
type Theme string

const (
	ThemeLove     Theme = "love"
	ThemeCareer   Theme = "career"
	ThemeMoney    Theme = "money"
	ThemeGeneral  Theme = "general"
	ThemeDaily    Theme = "daily"
	ThemeLifePath Theme = "life_path"
)

// ThemePriority breaks scoring ties in the intent router, highest first.
var ThemePriority = []Theme{
	ThemeMoney, ThemeCareer, ThemeLove, ThemeGeneral, ThemeDaily, ThemeLifePath,
}

// Draw is a single card as laid down: identity, orientation, life area, slot.
type Draw struct {
	CardID      string      `json:"card_id"`
	Orientation Orientation `json:"orientation"`
	Domain      LifeArea    `json:"domain"`
	Position    string      `json:"position"`
}

// FacetKey returns the draw's facet tuple keyed the way corpus metadata is.
func (d Draw) FacetKey() map[string]string {
	return map[string]string{
		"card_id":     d.CardID,
		"orientation": string(d.Orientation),
		"domain":      string(d.Domain),
		"position":    d.Position,
	}
}

// Spread is a fixed layout of card positions tied to a theme/sub-topic.
type Spread struct {
	Theme     Theme    `json:"theme"`
	SubTopic  string   `json:"sub_topic"`
	CardCount int      `json:"card_count"`
	Positions []string `json:"positions"`
	Title     string   `json:"title"`
	TitleKo   string   `json:"title_ko"`
}

// HasPosition reports whether label is one of the spread's declared positions.
func (s Spread) HasPosition(label string) bool {
	for _, p := range s.Positions {
		if p == label {
			return true
		}
	}
	return false
}

// CardEvidence is the grounded justification the generator must emit per draw.
type CardEvidence struct {
	CardID      string      `json:"card_id"`
	Orientation Orientation `json:"orientation"`
	Domain      LifeArea    `json:"domain"`
	Position    string      `json:"position"`
	Evidence    string      `json:"evidence"`
}

// Tuple returns the evidence's draw tuple without the evidence text, for
// multiset comparison against the request draws.
func (e CardEvidence) Tuple() Draw {
	return Draw{CardID: e.CardID, Orientation: e.Orientation, Domain: e.Domain, Position: e.Position}
}

// CardInsight is a per-position interpretation in the final reading.
type CardInsight struct {
	Position       string `json:"position"`
	Interpretation string `json:"interpretation"`
}

// Advice is a titled piece of guidance in the final reading.
type Advice struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Reading is the structured response of the interpretation pipeline.
type Reading struct {
	OverallMessage string         `json:"overall_message"`
	CardInsights   []CardInsight  `json:"card_insights"`
	CardEvidence   []CardEvidence `json:"card_evidence"`
	Advice         []Advice       `json:"advice"`
	Followups      []string       `json:"followups"`
	RecordID       string         `json:"record_id"`
	Degraded       bool           `json:"degraded,omitempty"`
}
