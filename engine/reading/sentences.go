package reading

import "regexp"

// sentenceRe is the single segmentation rule, part of the public contract:
// a run of terminal punctuation (Latin or CJK) followed by whitespace or end
// of string closes one sentence. Consecutive punctuation counts once.
var sentenceRe = regexp.MustCompile(`[.!?。！？]+(\s+|$)`)

// CountSentences returns the number of sentences in s under the fixed
// segmentation rule. Trailing text without terminal punctuation does not
// count as a sentence.
func CountSentences(s string) int {
	return len(sentenceRe.FindAllString(s, -1))
}

// FirstSentence returns the first sentence of s including its terminal
// punctuation, or all of s when no boundary is found.
func FirstSentence(s string) string {
	loc := sentenceRe.FindStringIndex(s)
	if loc == nil {
		return s
	}
	out := s[:loc[1]]
	// Trim the boundary whitespace, keep the punctuation.
	for len(out) > 0 && (out[len(out)-1] == ' ' || out[len(out)-1] == '\n' || out[len(out)-1] == '\t') {
		out = out[:len(out)-1]
	}
	return out
}
