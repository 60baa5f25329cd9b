// Package router classifies a free-form user question into a (theme,
// sub-topic) pair and selects a spread layout. Classification is a pure
// keyword-bucket scorer: no model call, never fails, always returns a best
// guess.
package router

import (
	"strings"
	"unicode/utf8"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
)

// Detection is the router's classification of one question.
type Detection struct {
	Theme         domain.Theme `json:"theme"`
	SubTopic      string       `json:"sub_topic"`
	Confidence    float64      `json:"confidence"`
	LowConfidence bool         `json:"low_confidence"`
}

// lowConfidenceFloor marks detections the caller may want to double-check.
const lowConfidenceFloor = 0.6

// themeKeywords holds the keyword buckets. Matching is substring-based
// because Korean has no word boundaries; longer tokens score higher.
var themeKeywords = map[domain.Theme][]string{
	domain.ThemeMoney: {
		"돈", "주식", "코인", "빚", "투자", "재테크", "대출", "적금", "부동산",
		"money", "investment", "stock", "crypto", "loan", "debt", "salary",
	},
	domain.ThemeCareer: {
		"이직", "면접", "퇴사", "승진", "취업", "회사", "직장", "사업",
		"job", "interview", "career", "promotion", "resign", "startup",
	},
	domain.ThemeLove: {
		"연애", "재회", "연락", "소개팅", "짝사랑", "남자친구", "여자친구", "썸",
		"ex", "crush", "relationship", "dating", "breakup",
	},
	domain.ThemeGeneral: {
		"운세", "고민", "선택", "결정",
		"fortune", "decision", "choice",
	},
	domain.ThemeDaily: {
		"오늘", "내일", "하루",
		"today", "tomorrow", "daily",
	},
	domain.ThemeLifePath: {
		"인생", "방향", "사주", "앞날",
		"life", "path", "purpose", "destiny",
	},
}

// subTopicKeywords maps question tokens to a concrete sub-topic when one is
// clearly named. Checked per detected theme first, then across all themes.
var subTopicKeywords = []struct {
	token    string
	theme    domain.Theme
	subTopic string
}{
	{"재회", domain.ThemeLove, domain.SubReunion},
	{"reunion", domain.ThemeLove, domain.SubReunion},
	{"ex", domain.ThemeLove, domain.SubReunion},
	{"면접", domain.ThemeCareer, domain.SubInterview},
	{"interview", domain.ThemeCareer, domain.SubInterview},
	{"투자", domain.ThemeMoney, domain.SubInvestment},
	{"주식", domain.ThemeMoney, domain.SubInvestment},
	{"코인", domain.ThemeMoney, domain.SubInvestment},
	{"investment", domain.ThemeMoney, domain.SubInvestment},
	{"오늘", domain.ThemeDaily, domain.SubTodayCard},
	{"today", domain.ThemeDaily, domain.SubTodayCard},
	{"켈틱", "", domain.SubCelticCross},
	{"celtic", "", domain.SubCelticCross},
}

// yesNoMarkers flag closed questions. A yes/no question never resolves to
// the celtic-cross layout: a ten-card narrative spread answers the wrong
// question shape.
var yesNoMarkers = []string{
	"할까", "될까", "일까", "갈까", "올까", "맞을까", "좋을까",
	"should i", "will it", "yes or no", "can i",
}

// Router classifies questions and resolves spreads against the catalog.
type Router struct {
	spreads *domain.SpreadCatalog
}

// New creates a Router over the given spread catalog.
func New(spreads *domain.SpreadCatalog) *Router {
	return &Router{spreads: spreads}
}

// Detect scores each theme by the total rune length of matched keywords,
// breaks ties by domain.ThemePriority, and derives confidence as w/(w+1).
// It never fails: an unmatched question yields (life_path, general, 0).
func (r *Router) Detect(question string) Detection {
	q := strings.ToLower(question)

	scores := make(map[domain.Theme]float64, len(themeKeywords))
	for theme, tokens := range themeKeywords {
		for _, tok := range tokens {
			if containsToken(q, tok) {
				scores[theme] += float64(utf8.RuneCountInString(tok))
			}
		}
	}

	best, weight := pickTheme(scores)
	if weight == 0 {
		return Detection{Theme: domain.ThemeLifePath, SubTopic: "general", Confidence: 0, LowConfidence: true}
	}

	conf := weight / (weight + 1)
	return Detection{
		Theme:         best,
		SubTopic:      r.subTopic(q, best),
		Confidence:    conf,
		LowConfidence: conf < lowConfidenceFloor,
	}
}

// ResolveSpread returns the spread for the pair, applying the catalog's
// deterministic fallback chain.
func (r *Router) ResolveSpread(theme domain.Theme, subTopic string) domain.Spread {
	return r.spreads.Resolve(theme, subTopic)
}

// subTopic picks the most specific sub-topic the question names, honouring
// the yes/no rule.
func (r *Router) subTopic(q string, theme domain.Theme) string {
	yesNo := isYesNo(q)

	for _, st := range subTopicKeywords {
		if st.theme != "" && st.theme != theme {
			continue
		}
		if !containsToken(q, st.token) {
			continue
		}
		if st.subTopic == domain.SubCelticCross && yesNo {
			continue
		}
		return st.subTopic
	}

	if yesNo {
		return domain.SubOneCard
	}
	return domain.SubThreeCard
}

func isYesNo(q string) bool {
	for _, m := range yesNoMarkers {
		if strings.Contains(q, m) {
			return true
		}
	}
	return false
}

// containsToken matches Korean tokens by substring and ASCII tokens on word
// boundaries, so "ex" does not fire inside "expect".
func containsToken(q, tok string) bool {
	if !isASCII(tok) {
		return strings.Contains(q, tok)
	}
	idx := 0
	for {
		i := strings.Index(q[idx:], tok)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(tok)
		beforeOK := start == 0 || !isWordByte(q[start-1])
		afterOK := end == len(q) || !isWordByte(q[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// pickTheme returns the highest-scoring theme, ties broken by priority order.
func pickTheme(scores map[domain.Theme]float64) (domain.Theme, float64) {
	var best domain.Theme
	var bestW float64
	for _, theme := range domain.ThemePriority {
		if w := scores[theme]; w > bestW {
			best, bestW = theme, w
		}
	}
	return best, bestW
}
