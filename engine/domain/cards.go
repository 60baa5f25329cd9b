package domain

import (
	"fmt"
	"strings"
)

// Card is one catalog record. The catalog is loaded once at startup and is
// immutable afterwards.
type Card struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	NameKo    string   `json:"name_ko"`
	Upright   string   `json:"upright"`
	Reversed  string   `json:"reversed"`
	Keywords  []string `json:"keywords"`
	Symbolism string   `json:"symbolism"`
	Advice    string   `json:"advice"`
	Archetype string   `json:"archetype"`
}

// majorArcana lists the 22 trumps. IDs follow the MAJOR_<n> convention used
// by the front-end draw engine.
var majorArcana = []Card{
	{ID: "MAJOR_0", Name: "The Fool", NameKo: "바보", Upright: "new beginnings, spontaneity, a leap of faith", Reversed: "recklessness, hesitation, a risk taken blind", Keywords: []string{"beginning", "innocence", "journey"}, Symbolism: "A traveller steps toward a cliff edge, a white rose in hand.", Advice: "Start before you feel ready, but look where you step.", Archetype: "innocent"},
	{ID: "MAJOR_1", Name: "The Magician", NameKo: "마법사", Upright: "willpower, skill, resources aligned", Reversed: "manipulation, scattered talent, untapped potential", Keywords: []string{"will", "craft", "manifestation"}, Symbolism: "All four suit emblems laid out on the table.", Advice: "You already hold every tool this situation needs.", Archetype: "creator"},
	{ID: "MAJOR_2", Name: "The High Priestess", NameKo: "여사제", Upright: "intuition, hidden knowledge, stillness", Reversed: "secrets kept too long, ignored instincts", Keywords: []string{"intuition", "mystery", "silence"}, Symbolism: "A veiled figure between two pillars.", Advice: "The answer is already known; stop asking and listen.", Archetype: "sage"},
	{ID: "MAJOR_3", Name: "The Empress", NameKo: "여제", Upright: "abundance, nurture, steady growth", Reversed: "smothering care, creative block, dependence", Keywords: []string{"abundance", "nurture", "growth"}, Symbolism: "A crowned figure in a ripening field.", Advice: "Feed what you want to grow, and only that.", Archetype: "caregiver"},
	{ID: "MAJOR_4", Name: "The Emperor", NameKo: "황제", Upright: "structure, authority, discipline", Reversed: "rigidity, domination, abdicated control", Keywords: []string{"order", "authority", "foundation"}, Symbolism: "A stone throne marked with ram heads.", Advice: "Build the frame first; freedom comes from structure.", Archetype: "ruler"},
	{ID: "MAJOR_5", Name: "The Hierophant", NameKo: "교황", Upright: "tradition, guidance, shared belief", Reversed: "dogma, rebellion against convention", Keywords: []string{"tradition", "teaching", "convention"}, Symbolism: "Two acolytes kneel before a teacher.", Advice: "Ask someone who has walked this road before you.", Archetype: "sage"},
	{ID: "MAJOR_6", Name: "The Lovers", NameKo: "연인", Upright: "union, alignment of values, a heartfelt choice", Reversed: "disharmony, misaligned values, avoidance of choice", Keywords: []string{"union", "choice", "values"}, Symbolism: "Two figures beneath an angel at noon.", Advice: "Choose with your values, not only your longing.", Archetype: "lover"},
	{ID: "MAJOR_7", Name: "The Chariot", NameKo: "전차", Upright: "momentum, willpower, directed victory", Reversed: "scattered force, stalling, loss of direction", Keywords: []string{"drive", "victory", "control"}, Symbolism: "Two sphinxes pulling in opposite directions, held by one rein.", Advice: "Pick one direction and commit the whole of yourself.", Archetype: "hero"},
	{ID: "MAJOR_8", Name: "Strength", NameKo: "힘", Upright: "quiet courage, patience, mastered impulse", Reversed: "self-doubt, raw force, inner struggle", Keywords: []string{"courage", "patience", "gentleness"}, Symbolism: "A figure closing a lion's mouth with bare hands.", Advice: "Soft persistence outlasts brute force.", Archetype: "hero"},
	{ID: "MAJOR_9", Name: "The Hermit", NameKo: "은둔자", Upright: "introspection, solitude, inner guidance", Reversed: "isolation, withdrawal taken too far", Keywords: []string{"solitude", "search", "lantern"}, Symbolism: "A lone lantern on a mountain path.", Advice: "Step back far enough to see your own footprints.", Archetype: "sage"},
	{ID: "MAJOR_10", Name: "Wheel of Fortune", NameKo: "운명의 수레바퀴", Upright: "turning luck, cycles, a timely opening", Reversed: "resistance to change, a cycle repeating", Keywords: []string{"cycle", "turning point", "fate"}, Symbolism: "A wheel turning regardless of who rides it.", Advice: "You cannot stop the wheel; you can choose your grip.", Archetype: "fate"},
	{ID: "MAJOR_11", Name: "Justice", NameKo: "정의", Upright: "fairness, accountability, clear-eyed truth", Reversed: "bias, avoidance of consequence, imbalance", Keywords: []string{"balance", "truth", "consequence"}, Symbolism: "Sword upright, scales level.", Advice: "Weigh it honestly, including your own part.", Archetype: "ruler"},
	{ID: "MAJOR_12", Name: "The Hanged Man", NameKo: "매달린 사람", Upright: "surrender, new perspective, useful pause", Reversed: "stalling, martyrdom, fear of letting go", Keywords: []string{"suspension", "perspective", "release"}, Symbolism: "A figure hanging at ease, the world inverted.", Advice: "What looks like waiting may be the work itself.", Archetype: "mystic"},
	{ID: "MAJOR_13", Name: "Death", NameKo: "죽음", Upright: "ending, transformation, necessary clearing", Reversed: "clinging to what is finished, stalled change", Keywords: []string{"ending", "transformation", "renewal"}, Symbolism: "A sunrise behind the rider's banner.", Advice: "Let the ending be complete so the beginning can be.", Archetype: "transformer"},
	{ID: "MAJOR_14", Name: "Temperance", NameKo: "절제", Upright: "moderation, blending, patient calibration", Reversed: "excess, imbalance, forced mixing", Keywords: []string{"balance", "patience", "alchemy"}, Symbolism: "Water poured between two cups without spilling.", Advice: "Mix slowly; the right proportion cannot be rushed.", Archetype: "mediator"},
	{ID: "MAJOR_15", Name: "The Devil", NameKo: "악마", Upright: "attachment, temptation, a chain you could lift off", Reversed: "release from a bond, confronting dependence", Keywords: []string{"bondage", "desire", "shadow"}, Symbolism: "Chained figures whose chains hang loose.", Advice: "Name the chain before deciding whether to wear it.", Archetype: "shadow"},
	{ID: "MAJOR_16", Name: "The Tower", NameKo: "탑", Upright: "sudden upheaval, revelation, false structure falling", Reversed: "averted disaster, fear of collapse, delayed truth", Keywords: []string{"upheaval", "revelation", "collapse"}, Symbolism: "Lightning striking a crowned tower.", Advice: "What breaks here was already cracked.", Archetype: "transformer"},
	{ID: "MAJOR_17", Name: "The Star", NameKo: "별", Upright: "hope, healing, quiet renewal", Reversed: "discouragement, faith worn thin", Keywords: []string{"hope", "healing", "guidance"}, Symbolism: "Water poured back to the pool under open stars.", Advice: "Refill slowly; hope is a practice, not a mood.", Archetype: "healer"},
	{ID: "MAJOR_18", Name: "The Moon", NameKo: "달", Upright: "uncertainty, intuition through fog, dreams", Reversed: "confusion lifting, fear losing its shape", Keywords: []string{"illusion", "intuition", "night"}, Symbolism: "A path between two towers lit only by moonlight.", Advice: "Move slowly when the light is borrowed.", Archetype: "mystic"},
	{ID: "MAJOR_19", Name: "The Sun", NameKo: "태양", Upright: "vitality, clarity, uncomplicated joy", Reversed: "dimmed optimism, delayed success", Keywords: []string{"joy", "clarity", "success"}, Symbolism: "A child riding beneath a full sun.", Advice: "Say the good thing plainly; it will hold.", Archetype: "innocent"},
	{ID: "MAJOR_20", Name: "Judgement", NameKo: "심판", Upright: "reckoning, awakening, an honest summons", Reversed: "self-judgment, ignoring the call", Keywords: []string{"awakening", "reckoning", "calling"}, Symbolism: "Figures rising at the sound of a horn.", Advice: "Answer the call you keep pretending not to hear.", Archetype: "fate"},
	{ID: "MAJOR_21", Name: "The World", NameKo: "세계", Upright: "completion, integration, a full circle", Reversed: "loose ends, an almost-finished chapter", Keywords: []string{"completion", "wholeness", "arrival"}, Symbolism: "A dancer inside a laurel wreath.", Advice: "Close the loop properly before opening the next.", Archetype: "creator"},
}

// Minor arcana are generated from suit and rank tables. IDs follow the
// minor_<suit>_<nn> convention (e.g. minor_cups_03).
var minorSuits = []struct {
	key, name, nameKo, theme, reversedTheme, archetype string
}{
	{"cups", "Cups", "컵", "emotion and relationship", "feeling withheld or overflowing", "lover"},
	{"wands", "Wands", "완드", "drive and creative fire", "energy blocked or burnt out", "hero"},
	{"swords", "Swords", "검", "thought and conflict", "thought turned against itself", "sage"},
	{"pentacles", "Pentacles", "펜타클", "work and material ground", "material worry or stagnation", "ruler"},
}

var minorRanks = []struct {
	n       int
	name    string
	upright string
}{
	{1, "Ace", "a seed moment, the suit in its purest form"},
	{2, "Two", "a balance or exchange taking shape"},
	{3, "Three", "first visible growth, collaboration"},
	{4, "Four", "stability that can turn into stillness"},
	{5, "Five", "friction, loss, the hard middle"},
	{6, "Six", "recovery, generosity, movement onward"},
	{7, "Seven", "assessment, patience, a fork in effort"},
	{8, "Eight", "diligence, repetition, momentum built"},
	{9, "Nine", "near-completion, the weight of almost"},
	{10, "Ten", "culmination, the full load of the suit"},
	{11, "Page", "a student's approach, news arriving"},
	{12, "Knight", "pursuit, the suit set in motion"},
	{13, "Queen", "inward mastery of the suit"},
	{14, "King", "outward mastery of the suit"},
}

// CardCatalog is the immutable process-wide card set keyed by card_id.
type CardCatalog struct {
	byID   map[string]Card
	byName map[string]string
	order  []string
}

// NewCardCatalog builds the full 78-card catalog.
func NewCardCatalog() *CardCatalog {
	c := &CardCatalog{byID: make(map[string]Card, 78), byName: make(map[string]string, 156)}
	for _, card := range majorArcana {
		c.add(card)
	}
	for _, suit := range minorSuits {
		for _, rank := range minorRanks {
			id := fmt.Sprintf("minor_%s_%02d", suit.key, rank.n)
			c.add(Card{
				ID:        id,
				Name:      fmt.Sprintf("%s of %s", rank.name, suit.name),
				NameKo:    fmt.Sprintf("%s %s", suit.nameKo, rank.name),
				Upright:   fmt.Sprintf("%s, expressed through %s", rank.upright, suit.theme),
				Reversed:  fmt.Sprintf("%s; %s", rank.upright, suit.reversedTheme),
				Keywords:  []string{suit.key, strings.ToLower(rank.name)},
				Symbolism: fmt.Sprintf("The %s suit carries %s.", strings.ToLower(suit.name), suit.theme),
				Advice:    fmt.Sprintf("Read this through the lens of %s.", suit.theme),
				Archetype: suit.archetype,
			})
		}
	}
	return c
}

func (c *CardCatalog) add(card Card) {
	c.byID[card.ID] = card
	c.byName[strings.ToLower(card.Name)] = card.ID
	c.byName[card.NameKo] = card.ID
	c.order = append(c.order, card.ID)
}

// Get returns the card for id, if present.
func (c *CardCatalog) Get(id string) (Card, bool) {
	card, ok := c.byID[id]
	return card, ok
}

// FindByName resolves a display name (English or Korean) or a raw card id to
// its catalog record.
func (c *CardCatalog) FindByName(name string) (Card, bool) {
	name = strings.TrimSpace(name)
	if card, ok := c.byID[name]; ok {
		return card, true
	}
	if id, ok := c.byName[strings.ToLower(name)]; ok {
		return c.byID[id], true
	}
	if id, ok := c.byName[name]; ok {
		return c.byID[id], true
	}
	return Card{}, false
}

// Has reports whether id exists in the catalog.
func (c *CardCatalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Len returns the number of cards in the catalog.
func (c *CardCatalog) Len() int { return len(c.byID) }

// IDs returns card ids in catalog order.
func (c *CardCatalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
