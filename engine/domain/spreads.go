package domain

// SubTopic constants for the spread catalog. Not exhaustive: any string key
// present in the catalog is a valid sub-topic.
const (
	SubOneCard     = "one_card"
	SubThreeCard   = "three_card"
	SubCelticCross = "celtic_cross"
	SubReunion     = "reunion"
	SubInterview   = "interview"
	SubInvestment  = "investment"
	SubTodayCard   = "today_card"
)

type spreadKey struct {
	theme Theme
	sub   string
}

// SpreadCatalog maps (theme, sub_topic) to a Spread. Immutable after init.
type SpreadCatalog struct {
	byKey map[spreadKey]Spread
}

// NewSpreadCatalog builds the process-wide spread catalog.
func NewSpreadCatalog() *SpreadCatalog {
	c := &SpreadCatalog{byKey: make(map[spreadKey]Spread)}
	for _, s := range defaultSpreads {
		c.byKey[spreadKey{s.Theme, s.SubTopic}] = s
	}
	return c
}

// Get returns the spread for the exact (theme, sub_topic) pair.
func (c *SpreadCatalog) Get(theme Theme, subTopic string) (Spread, bool) {
	s, ok := c.byKey[spreadKey{theme, subTopic}]
	return s, ok
}

// Resolve falls back deterministically: exact pair, then (theme, three_card),
// then (life_path, general). The last entry always exists.
func (c *SpreadCatalog) Resolve(theme Theme, subTopic string) Spread {
	if s, ok := c.Get(theme, subTopic); ok {
		return s
	}
	if s, ok := c.Get(theme, SubThreeCard); ok {
		return s
	}
	s, _ := c.Get(ThemeLifePath, "general")
	return s
}

var threePositions = []string{"past", "present", "future"}

var defaultSpreads = []Spread{
	{Theme: ThemeLove, SubTopic: SubOneCard, CardCount: 1, Positions: []string{"present"}, Title: "One Card: Love", TitleKo: "한 장의 연애운"},
	{Theme: ThemeLove, SubTopic: SubThreeCard, CardCount: 3, Positions: threePositions, Title: "Love Past-Present-Future", TitleKo: "연애 과거-현재-미래"},
	{Theme: ThemeLove, SubTopic: SubReunion, CardCount: 4, Positions: []string{"my_heart", "their_heart", "obstacle", "advice"}, Title: "Reunion Outlook", TitleKo: "재회 가능성"},
	{Theme: ThemeLove, SubTopic: SubCelticCross, CardCount: 10, Positions: []string{"present", "challenge", "root", "past", "crown", "future", "self", "environment", "hopes_fears", "outcome"}, Title: "Love Celtic Cross", TitleKo: "연애 켈틱 크로스"},

	{Theme: ThemeCareer, SubTopic: SubOneCard, CardCount: 1, Positions: []string{"present"}, Title: "One Card: Career", TitleKo: "한 장의 직업운"},
	{Theme: ThemeCareer, SubTopic: SubThreeCard, CardCount: 3, Positions: threePositions, Title: "Career Path", TitleKo: "커리어 흐름"},
	{Theme: ThemeCareer, SubTopic: SubInterview, CardCount: 3, Positions: []string{"strength", "risk", "advice"}, Title: "Interview Reading", TitleKo: "면접운"},
	{Theme: ThemeCareer, SubTopic: SubCelticCross, CardCount: 10, Positions: []string{"present", "challenge", "root", "past", "crown", "future", "self", "environment", "hopes_fears", "outcome"}, Title: "Career Celtic Cross", TitleKo: "커리어 켈틱 크로스"},

	{Theme: ThemeMoney, SubTopic: SubOneCard, CardCount: 1, Positions: []string{"present"}, Title: "One Card: Money", TitleKo: "한 장의 금전운"},
	{Theme: ThemeMoney, SubTopic: SubThreeCard, CardCount: 3, Positions: threePositions, Title: "Money Flow", TitleKo: "금전 흐름"},
	{Theme: ThemeMoney, SubTopic: SubInvestment, CardCount: 3, Positions: []string{"situation", "risk", "advice"}, Title: "Investment Caution", TitleKo: "투자 신중"},

	{Theme: ThemeGeneral, SubTopic: SubOneCard, CardCount: 1, Positions: []string{"present"}, Title: "One Card", TitleKo: "원 카드"},
	{Theme: ThemeGeneral, SubTopic: SubThreeCard, CardCount: 3, Positions: threePositions, Title: "Three Card", TitleKo: "쓰리 카드"},
	{Theme: ThemeGeneral, SubTopic: SubCelticCross, CardCount: 10, Positions: []string{"present", "challenge", "root", "past", "crown", "future", "self", "environment", "hopes_fears", "outcome"}, Title: "Celtic Cross", TitleKo: "켈틱 크로스"},

	{Theme: ThemeDaily, SubTopic: SubTodayCard, CardCount: 1, Positions: []string{"today"}, Title: "Card of the Day", TitleKo: "오늘의 카드"},
	{Theme: ThemeDaily, SubTopic: "daily_rhythm", CardCount: 3, Positions: []string{"morning", "afternoon", "evening"}, Title: "Daily Rhythm", TitleKo: "하루의 흐름"},

	{Theme: ThemeLifePath, SubTopic: "general", CardCount: 3, Positions: threePositions, Title: "Life Path", TitleKo: "인생의 길"},
	{Theme: ThemeLifePath, SubTopic: SubThreeCard, CardCount: 3, Positions: threePositions, Title: "Life Path Three Card", TitleKo: "인생 쓰리 카드"},
}

// koreanThemeAliases canonicalizes Korean theme labels seen on the wire.
// Unknown Korean labels are a validation failure, never guessed.
var koreanThemeAliases = map[string]Theme{
	"연애":  ThemeLove,
	"사랑":  ThemeLove,
	"직업":  ThemeCareer,
	"커리어": ThemeCareer,
	"금전":  ThemeMoney,
	"재물":  ThemeMoney,
	"종합":  ThemeGeneral,
	"일반":  ThemeGeneral,
	"오늘":  ThemeDaily,
	"데일리": ThemeDaily,
	"인생":  ThemeLifePath,
	"라이프": ThemeLifePath,
}

// koreanSubTopicAliases canonicalizes Korean sub-topic labels.
var koreanSubTopicAliases = map[string]string{
	"원카드":   SubOneCard,
	"쓰리카드":  SubThreeCard,
	"켈틱크로스": SubCelticCross,
	"재회":    SubReunion,
	"면접":    SubInterview,
	"투자":    SubInvestment,
	"오늘의카드": SubTodayCard,
}

// CanonicalTheme maps a wire label (English enum or known Korean alias) to a
// Theme. ok is false for anything else.
func CanonicalTheme(label string) (Theme, bool) {
	switch Theme(label) {
	case ThemeLove, ThemeCareer, ThemeMoney, ThemeGeneral, ThemeDaily, ThemeLifePath:
		return Theme(label), true
	}
	t, ok := koreanThemeAliases[label]
	return t, ok
}

// CanonicalSubTopic maps a wire sub-topic label to its English key.
// English labels pass through untouched; only known Korean aliases translate.
func CanonicalSubTopic(label string) (string, bool) {
	if label == "" {
		return "", false
	}
	if s, ok := koreanSubTopicAliases[label]; ok {
		return s, true
	}
	if !hasHangul(label) {
		return label, true
	}
	return "", false
}

func hasHangul(s string) bool {
	for _, r := range s {
		if r >= 0xAC00 && r <= 0xD7A3 {
			return true
		}
	}
	return false
}
