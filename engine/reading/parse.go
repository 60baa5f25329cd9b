package reading

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
)

// llmReply mirrors the JSON schema the system prompt demands.
type llmReply struct {
	Overall      string                `json:"overall"`
	Cards        []domain.CardInsight  `json:"cards"`
	CardEvidence []domain.CardEvidence `json:"card_evidence"`
	Advice       []domain.Advice       `json:"advice"`
}

// parseReply parses the raw model output as strict JSON. On failure it makes
// one syntactic repair attempt (strip code fences, trim to the outer object,
// balance brackets); a second failure is the caller's ErrLLMMalformed.
func parseReply(raw string) (llmReply, error) {
	var out llmReply
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}

	repaired := repairJSON(raw)
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return llmReply{}, fmt.Errorf("parse llm reply after repair: %w", err)
	}
	return out, nil
}

// repairJSON applies the fixed repair pass: drop markdown fences, cut
// everything outside the outermost object, and close unbalanced brackets.
func repairJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Strip ``` fences, with or without a language tag.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Trim prose before the first '{'.
	if idx := strings.IndexByte(s, '{'); idx > 0 {
		s = s[idx:]
	}

	return balanceBrackets(s)
}

// balanceBrackets appends the closers for any brackets left open outside of
// string literals. It never removes content.
func balanceBrackets(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		s += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}
	return s
}
