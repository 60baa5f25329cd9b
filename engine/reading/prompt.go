package reading

import (
	"fmt"
	"strings"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
)

const systemPromptKo = `당신은 신중하고 근거 중심적인 타로 리더입니다.
제공된 컨텍스트 블록과 DRAWS 목록에 근거해서만 해석하세요.
카드를 새로 만들거나 DRAWS에 없는 튜플을 언급하지 마세요.
결과를 단정하지 말고, 의학/법률/투자 조언을 하지 마세요.

아래 스키마와 정확히 일치하는 JSON 객체만 출력하세요(마크다운, 코드펜스, 추가 텍스트 금지):
{
  "overall": "<전체 메시지>",
  "cards": [{"position": "<포지션>", "interpretation": "<해석>"}],
  "card_evidence": [{"card_id": "<id>", "orientation": "upright|reversed", "domain": "love|career|money|general", "position": "<포지션>", "evidence": "<컨텍스트에 근거한 2~3문장>"}],
  "advice": [{"title": "<제목>", "detail": "<내용>"}]
}
card_evidence에는 DRAWS의 각 항목마다 정확히 하나의 entry가 있어야 합니다.`

const systemPromptEn = `You are a careful, evidence-grounded tarot reader.
Interpret only from the provided context blocks and the DRAWS list.
Never invent cards or mention tuples absent from DRAWS.
Do not predict certain outcomes; never give medical, legal, or financial advice.

Respond with ONLY a JSON object matching this exact schema (no markdown, no code fences, no extra text):
{
  "overall": "<overall message>",
  "cards": [{"position": "<position>", "interpretation": "<interpretation>"}],
  "card_evidence": [{"card_id": "<id>", "orientation": "upright|reversed", "domain": "love|career|money|general", "position": "<position>", "evidence": "<2-3 sentences grounded in the context>"}],
  "advice": [{"title": "<title>", "detail": "<detail>"}]
}
card_evidence must hold exactly one entry per item in DRAWS.`

// retryInstruction is appended verbatim on the single evidence retry.
const retryInstruction = "The previous reply was missing card_evidence entries matching each draw; include exactly one evidence entry per draw with 2-3 sentences."

func systemPrompt(locale string) string {
	if locale == "en" {
		return systemPromptEn
	}
	return systemPromptKo
}

// userPrompt assembles the generation request: spread header, retrieved
// context (which already ends with the DRAWS block), and the question.
func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Spread: %s (%s/%s)\n\n", req.Spread.Title, req.Spread.Theme, req.Spread.SubTopic)
	b.WriteString("Context:\n")
	b.WriteString(req.Context)
	b.WriteString("\n\n")
	if req.Question != "" {
		fmt.Fprintf(&b, "The querent asks: %q\n", req.Question)
	}
	return b.String()
}

// followupsByTheme are canned follow-up questions appended to the reading.
var followupsByTheme = map[domain.Theme][]string{
	domain.ThemeLove:     {"상대방의 마음이 더 궁금하신가요?", "다음 달의 연애 흐름도 볼까요?"},
	domain.ThemeCareer:   {"이직 타이밍을 더 깊게 볼까요?", "면접운을 따로 확인해 볼까요?"},
	domain.ThemeMoney:    {"지출 흐름을 카드로 짚어볼까요?", "올해 금전 흐름 전체를 볼까요?"},
	domain.ThemeGeneral:  {"더 구체적인 질문으로 다시 볼까요?"},
	domain.ThemeDaily:    {"내일의 카드도 확인해 볼까요?"},
	domain.ThemeLifePath: {"올해의 큰 흐름을 함께 볼까요?"},
}

func followups(theme domain.Theme) []string {
	if f, ok := followupsByTheme[theme]; ok {
		out := make([]string, len(f))
		copy(out, f)
		return out
	}
	return nil
}
