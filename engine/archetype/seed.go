package archetype

import "context"

// seedArchetypes is the starter cross-tradition symbol set. Tarot nodes cover
// the major arcana most often drawn in advisory spreads; saju nodes are the
// five elements; astro nodes are the classical planets.
var seedArchetypes = []Archetype{
	{ID: "tarot:fool", System: SystemTarot, Name: "The Fool", NameKo: "광대", CardID: "MAJOR_0", Element: "air", Keywords: []string{"beginnings", "leap"}},
	{ID: "tarot:magician", System: SystemTarot, Name: "The Magician", NameKo: "마법사", CardID: "MAJOR_1", Element: "air", Keywords: []string{"will", "skill"}},
	{ID: "tarot:priestess", System: SystemTarot, Name: "The High Priestess", NameKo: "여사제", CardID: "MAJOR_2", Element: "water", Keywords: []string{"intuition"}},
	{ID: "tarot:empress", System: SystemTarot, Name: "The Empress", NameKo: "여황제", CardID: "MAJOR_3", Element: "earth", Keywords: []string{"abundance"}},
	{ID: "tarot:emperor", System: SystemTarot, Name: "The Emperor", NameKo: "황제", CardID: "MAJOR_4", Element: "fire", Keywords: []string{"structure"}},
	{ID: "tarot:lovers", System: SystemTarot, Name: "The Lovers", NameKo: "연인", CardID: "MAJOR_6", Element: "air", Keywords: []string{"union", "choice"}},
	{ID: "tarot:chariot", System: SystemTarot, Name: "The Chariot", NameKo: "전차", CardID: "MAJOR_7", Element: "water", Keywords: []string{"drive"}},
	{ID: "tarot:wheel", System: SystemTarot, Name: "Wheel of Fortune", NameKo: "운명의 수레바퀴", CardID: "MAJOR_10", Element: "fire", Keywords: []string{"turning point"}},
	{ID: "tarot:death", System: SystemTarot, Name: "Death", NameKo: "죽음", CardID: "MAJOR_13", Element: "water", Keywords: []string{"ending", "renewal"}},
	{ID: "tarot:tower", System: SystemTarot, Name: "The Tower", NameKo: "탑", CardID: "MAJOR_16", Element: "fire", Keywords: []string{"upheaval"}},
	{ID: "tarot:star", System: SystemTarot, Name: "The Star", NameKo: "별", CardID: "MAJOR_17", Element: "air", Keywords: []string{"hope"}},
	{ID: "tarot:sun", System: SystemTarot, Name: "The Sun", NameKo: "태양", CardID: "MAJOR_19", Element: "fire", Keywords: []string{"vitality"}},

	{ID: "saju:wood", System: SystemSaju, Name: "Wood", NameKo: "목(木)", Element: "wood", Keywords: []string{"growth"}},
	{ID: "saju:fire", System: SystemSaju, Name: "Fire", NameKo: "화(火)", Element: "fire", Keywords: []string{"expansion"}},
	{ID: "saju:earth", System: SystemSaju, Name: "Earth", NameKo: "토(土)", Element: "earth", Keywords: []string{"stability"}},
	{ID: "saju:metal", System: SystemSaju, Name: "Metal", NameKo: "금(金)", Element: "metal", Keywords: []string{"resolve"}},
	{ID: "saju:water", System: SystemSaju, Name: "Water", NameKo: "수(水)", Element: "water", Keywords: []string{"wisdom"}},

	{ID: "astro:sun", System: SystemAstro, Name: "Sun", NameKo: "태양", Element: "fire", Keywords: []string{"identity"}},
	{ID: "astro:moon", System: SystemAstro, Name: "Moon", NameKo: "달", Element: "water", Keywords: []string{"emotion"}},
	{ID: "astro:mercury", System: SystemAstro, Name: "Mercury", NameKo: "수성", Element: "air", Keywords: []string{"communication"}},
	{ID: "astro:venus", System: SystemAstro, Name: "Venus", NameKo: "금성", Element: "earth", Keywords: []string{"attraction"}},
	{ID: "astro:mars", System: SystemAstro, Name: "Mars", NameKo: "화성", Element: "fire", Keywords: []string{"drive"}},
	{ID: "astro:saturn", System: SystemAstro, Name: "Saturn", NameKo: "토성", Element: "earth", Keywords: []string{"discipline"}},
}

// seedCrossRefs links the traditions by shared element and classical
// correspondence.
var seedCrossRefs = []CrossRef{
	{FromID: "tarot:fool", ToID: "saju:wood", Relation: "resonates", Weight: 0.6},
	{FromID: "tarot:magician", ToID: "astro:mercury", Relation: "resonates", Weight: 0.9},
	{FromID: "tarot:priestess", ToID: "astro:moon", Relation: "resonates", Weight: 0.9},
	{FromID: "tarot:priestess", ToID: "saju:water", Relation: "resonates", Weight: 0.7},
	{FromID: "tarot:empress", ToID: "astro:venus", Relation: "resonates", Weight: 0.9},
	{FromID: "tarot:emperor", ToID: "astro:mars", Relation: "resonates", Weight: 0.7},
	{FromID: "tarot:emperor", ToID: "saju:metal", Relation: "tempers", Weight: 0.5},
	{FromID: "tarot:lovers", ToID: "astro:venus", Relation: "resonates", Weight: 0.7},
	{FromID: "tarot:chariot", ToID: "saju:water", Relation: "tempers", Weight: 0.5},
	{FromID: "tarot:wheel", ToID: "saju:fire", Relation: "resonates", Weight: 0.6},
	{FromID: "tarot:death", ToID: "saju:water", Relation: "resonates", Weight: 0.7},
	{FromID: "tarot:death", ToID: "astro:saturn", Relation: "opposes", Weight: 0.5},
	{FromID: "tarot:tower", ToID: "astro:mars", Relation: "resonates", Weight: 0.8},
	{FromID: "tarot:star", ToID: "saju:water", Relation: "resonates", Weight: 0.6},
	{FromID: "tarot:sun", ToID: "astro:sun", Relation: "resonates", Weight: 1.0},
	{FromID: "tarot:sun", ToID: "saju:fire", Relation: "resonates", Weight: 0.8},
}

// Seed writes the starter archetype set. Safe to run repeatedly; all writes
// are merges.
func Seed(ctx context.Context, store *Store) error {
	return store.SaveBatch(ctx, seedArchetypes, seedCrossRefs)
}
