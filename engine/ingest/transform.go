package ingest

import (
	"strings"
	"unicode"
)

const (
	// DefaultChunkSize is the target token count per chunk. Corpus passages
	// are short; the size keeps one facet's meaning inside one chunk.
	DefaultChunkSize = 220
	// DefaultOverlap is the token overlap between adjacent chunks.
	DefaultOverlap = 30
)

// splitSentences splits text on terminal punctuation (Latin or CJK) and
// newlines.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		switch r {
		case '\n':
			flushSentence(&current, &sentences)
		case '.', '!', '?':
			// Latin punctuation closes a sentence only before whitespace or
			// end of text, so "3.5" stays intact.
			if i == len(runes)-1 || unicode.IsSpace(runes[i+1]) {
				flushSentence(&current, &sentences)
			}
		case '。', '！', '？':
			flushSentence(&current, &sentences)
		}
	}
	flushSentence(&current, &sentences)
	return sentences
}

func flushSentence(buf *strings.Builder, out *[]string) {
	if s := strings.TrimSpace(buf.String()); s != "" {
		*out = append(*out, s)
	}
	buf.Reset()
}

// chunkEntry groups an entry's sentences into ~chunkSize-token chunks with
// overlap. Token count is approximated as word count; for Korean text without
// spaces a sentence counts as one word per 4 runes.
func chunkEntry(entryID, text string, chunkSize, overlap int) []Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	var chunks []Chunk
	idx := 0
	start := 0

	for start < len(sentences) {
		var buf strings.Builder
		tokens := 0
		end := start

		for end < len(sentences) {
			words := tokenCount(sentences[end])
			if tokens+words > chunkSize && tokens > 0 {
				break
			}
			if buf.Len() > 0 {
				buf.WriteRune(' ')
			}
			buf.WriteString(sentences[end])
			tokens += words
			end++
		}

		chunks = append(chunks, Chunk{
			Text:    buf.String(),
			Index:   idx,
			EntryID: entryID,
		})
		idx++

		overlapTokens := 0
		newStart := end
		for newStart > start && overlapTokens < overlap {
			newStart--
			overlapTokens += tokenCount(sentences[newStart])
		}
		if newStart == start {
			start = end
		} else {
			start = newStart
		}
	}
	return chunks
}

// tokenCount approximates token usage. Space-separated words dominate for
// English; dense CJK text falls back to a rune-based estimate.
func tokenCount(s string) int {
	words := len(strings.Fields(s))
	runes := len([]rune(s))
	if est := runes / 4; est > words {
		return est
	}
	if words == 0 {
		return 1
	}
	return words
}
