package reading

import "strings"

// SafetyKind classifies a question for mandatory disclaimers.
type SafetyKind string

const (
	SafetyNone       SafetyKind = "none"
	SafetyMedical    SafetyKind = "medical"
	SafetyLegal      SafetyKind = "legal"
	SafetyInvestment SafetyKind = "investment"
)

// safetyKeywords drive classification. Precedence on multiple matches:
// medical, then legal, then investment.
var safetyKeywords = []struct {
	kind   SafetyKind
	tokens []string
}{
	{SafetyMedical, []string{
		"병원", "수술", "약물", "복용", "진단", "우울증", "아픈", "아파", "암이", "질병",
		"illness", "surgery", "medication", "diagnosis", "symptom", "disease",
	}},
	{SafetyLegal, []string{
		"소송", "고소", "계약서", "계약금", "위약금", "벌금", "변호사", "법적",
		"lawsuit", "sue", "contract", "penalty", "lawyer", "legal",
	}},
	{SafetyInvestment, []string{
		"주식", "코인", "빚", "대출", "투자", "레버리지", "전재산",
		"stock", "crypto", "loan", "debt", "invest", "leverage",
	}},
}

// ClassifySafety returns the disclaimer kind for a question.
func ClassifySafety(question string) SafetyKind {
	q := strings.ToLower(question)
	for _, bucket := range safetyKeywords {
		for _, tok := range bucket.tokens {
			if strings.Contains(q, tok) {
				return bucket.kind
			}
		}
	}
	return SafetyNone
}

// safetyClauses are the canonical fixed strings, one per kind per locale.
// They are compared verbatim: changing a clause is a breaking change.
var safetyClauses = map[SafetyKind]map[string]string{
	SafetyMedical: {
		"ko": "이 리딩은 의학적 조언이 아닙니다. 건강 문제는 반드시 의료 전문가와 상담하세요.",
		"en": "This reading is not medical advice. Please consult a medical professional about health concerns.",
	},
	SafetyLegal: {
		"ko": "이 리딩은 법률 자문이 아닙니다. 법적 문제는 반드시 변호사 등 전문가와 상담하세요.",
		"en": "This reading is not legal advice. Please consult a qualified legal professional.",
	},
	SafetyInvestment: {
		"ko": "이 리딩은 투자 조언이 아닙니다. 금전적 결정은 신중히, 전문가와 상담 후 내리세요.",
		"en": "This reading is not financial advice. Please make financial decisions carefully, ideally with a professional.",
	},
}

// SafetyClause returns the canonical clause for a kind and locale, falling
// back to Korean for unknown locales. Empty for SafetyNone.
func SafetyClause(kind SafetyKind, locale string) string {
	clauses, ok := safetyClauses[kind]
	if !ok {
		return ""
	}
	if c, ok := clauses[locale]; ok {
		return c
	}
	return clauses["ko"]
}

// ensureClause appends the canonical clause when overall lacks it. The
// returned bool reports whether an injection happened.
func ensureClause(overall string, kind SafetyKind, locale string) (string, bool) {
	clause := SafetyClause(kind, locale)
	if clause == "" || strings.Contains(overall, clause) {
		return overall, false
	}
	if overall == "" {
		return clause, true
	}
	return overall + "\n\n" + clause, true
}
