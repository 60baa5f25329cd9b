package router

import (
	"testing"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
)

func newTestRouter() *Router {
	return New(domain.NewSpreadCatalog())
}

func TestDetect_Themes(t *testing.T) {
	r := newTestRouter()
	tests := []struct {
		question string
		theme    domain.Theme
	}{
		{"빚내서 주식 투자해도 될까요?", domain.ThemeMoney},
		{"이직하고 싶은데 면접이 잘 될까요?", domain.ThemeCareer},
		{"재회할 수 있을까요? 연락이 안 와요", domain.ThemeLove},
		{"should I accept the job offer after the interview?", domain.ThemeCareer},
		{"오늘 하루 어떨까요?", domain.ThemeDaily},
	}
	for _, tt := range tests {
		d := r.Detect(tt.question)
		if d.Theme != tt.theme {
			t.Errorf("Detect(%q).Theme = %s, want %s", tt.question, d.Theme, tt.theme)
		}
	}
}

func TestDetect_MoneyBeatsCareerOnTie(t *testing.T) {
	r := newTestRouter()
	// "돈" (money, 1 rune) vs "회사" (career, 2 runes): career wins on weight.
	d := r.Detect("회사에서 돈 문제가 있어요")
	if d.Theme != domain.ThemeCareer {
		t.Fatalf("expected career by weight, got %s", d.Theme)
	}
	// Equal weights (주식 vs 회사, 2 runes each): priority list puts money first.
	d = r.Detect("주식 회사")
	if d.Theme != domain.ThemeMoney {
		t.Fatalf("expected money on tie, got %s", d.Theme)
	}
}

func TestDetect_NoMatchNeverFails(t *testing.T) {
	r := newTestRouter()
	d := r.Detect("흠...")
	if d.Theme != domain.ThemeLifePath || d.SubTopic != "general" {
		t.Fatalf("expected (life_path, general), got (%s, %s)", d.Theme, d.SubTopic)
	}
	if d.Confidence != 0 || !d.LowConfidence {
		t.Fatalf("expected zero confidence flagged low, got %+v", d)
	}
}

func TestDetect_Confidence(t *testing.T) {
	r := newTestRouter()
	d := r.Detect("investment")
	// weight 10 → confidence 10/11.
	if d.Confidence <= 0.9 || d.Confidence >= 0.92 {
		t.Fatalf("confidence = %f, want ~0.909", d.Confidence)
	}
	if d.LowConfidence {
		t.Fatal("0.9 must not be flagged low confidence")
	}

	d = r.Detect("돈")
	// weight 1 → confidence 0.5, below the 0.6 floor but still a best guess.
	if d.Confidence != 0.5 || !d.LowConfidence {
		t.Fatalf("expected 0.5 flagged low, got %+v", d)
	}
	if d.Theme != domain.ThemeMoney {
		t.Fatal("low confidence must still return the best guess")
	}
}

func TestDetect_YesNoNeverCelticCross(t *testing.T) {
	r := newTestRouter()
	questions := []string{
		"켈틱크로스로 봐주세요. 이직 할까 말까?",
		"celtic cross please: should i invest in crypto?",
	}
	for _, q := range questions {
		d := r.Detect(q)
		if d.SubTopic == domain.SubCelticCross {
			t.Errorf("yes/no question %q resolved to celtic_cross", q)
		}
	}

	// Without a yes/no marker the celtic request is honoured.
	d := r.Detect("켈틱크로스로 전체적인 연애 흐름을 보고 싶어요")
	if d.SubTopic != domain.SubCelticCross {
		t.Fatalf("expected celtic_cross, got %s", d.SubTopic)
	}
}

func TestDetect_SubTopics(t *testing.T) {
	r := newTestRouter()
	tests := []struct {
		question string
		sub      string
	}{
		{"재회 가능성이 궁금해요", domain.SubReunion},
		{"면접 결과가 궁금합니다", domain.SubInterview},
		{"주식 시장 흐름이 궁금해요", domain.SubInvestment},
		{"연애 전반이 궁금해요", domain.SubThreeCard},
		{"연락이 올까요?", domain.SubOneCard},
	}
	for _, tt := range tests {
		d := r.Detect(tt.question)
		if d.SubTopic != tt.sub {
			t.Errorf("Detect(%q).SubTopic = %s, want %s", tt.question, d.SubTopic, tt.sub)
		}
	}
}

func TestDetect_ASCIIWordBoundary(t *testing.T) {
	r := newTestRouter()
	// "ex" must not fire inside "expect".
	d := r.Detect("what should i expect next month")
	if d.Theme == domain.ThemeLove {
		t.Fatalf("'expect' matched the love bucket: %+v", d)
	}
}

func TestResolveSpread_Fallback(t *testing.T) {
	r := newTestRouter()
	s := r.ResolveSpread(domain.ThemeCareer, "nonexistent")
	if s.Theme != domain.ThemeCareer || s.SubTopic != domain.SubThreeCard {
		t.Fatalf("expected career three_card fallback, got %+v", s)
	}
}
