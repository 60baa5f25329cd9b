package reading

import (
	"strings"
	"testing"
)

func TestClassifySafety(t *testing.T) {
	cases := []struct {
		question string
		want     SafetyKind
	}{
		{"이 사람과 다시 만날 수 있을까요?", SafetyNone},
		{"수술을 받아야 할까요?", SafetyMedical},
		{"전세금 반환 소송을 할까요?", SafetyLegal},
		{"지금 주식을 사도 될까요?", SafetyInvestment},
		{"Should I sue my landlord?", SafetyLegal},
		{"Is this crypto a good buy?", SafetyInvestment},
	}
	for _, c := range cases {
		if got := ClassifySafety(c.question); got != c.want {
			t.Errorf("ClassifySafety(%q) = %s, want %s", c.question, got, c.want)
		}
	}
}

func TestClassifySafetyPrecedence(t *testing.T) {
	// Medical outranks legal outranks investment on multiple matches.
	if got := ClassifySafety("수술 비용 때문에 대출 소송까지 생각 중이에요"); got != SafetyMedical {
		t.Fatalf("got %s, want medical", got)
	}
	if got := ClassifySafety("계약금 반환과 투자 손실 문제"); got != SafetyLegal {
		t.Fatalf("got %s, want legal", got)
	}
}

func TestSafetyClauseLocales(t *testing.T) {
	ko := SafetyClause(SafetyInvestment, "ko")
	en := SafetyClause(SafetyInvestment, "en")
	if ko == "" || en == "" || ko == en {
		t.Fatal("expected distinct non-empty clauses per locale")
	}
	// Unknown locale falls back to Korean.
	if got := SafetyClause(SafetyInvestment, "ja"); got != ko {
		t.Fatalf("fallback clause = %q, want Korean", got)
	}
	if got := SafetyClause(SafetyNone, "ko"); got != "" {
		t.Fatalf("SafetyNone clause = %q, want empty", got)
	}
}

func TestEnsureClause(t *testing.T) {
	clause := SafetyClause(SafetyMedical, "ko")

	out, injected := ensureClause("전체 메시지입니다.", SafetyMedical, "ko")
	if !injected || !strings.HasSuffix(out, clause) {
		t.Fatalf("expected clause appended, got %q", out)
	}
	if !strings.Contains(out, "\n\n"+clause) {
		t.Fatal("clause must be separated by a blank line")
	}

	// Already present: no duplicate.
	again, injected := ensureClause(out, SafetyMedical, "ko")
	if injected || again != out {
		t.Fatal("clause must not be injected twice")
	}

	// Empty overall becomes the clause alone.
	solo, injected := ensureClause("", SafetyMedical, "ko")
	if !injected || solo != clause {
		t.Fatalf("got %q", solo)
	}
}
