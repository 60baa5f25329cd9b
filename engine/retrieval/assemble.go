package retrieval

import (
	"fmt"
	"strings"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
	"github.com/ArcanaLabs/arcana-engine/engine/semantic"
)

// MaxContextChars bounds the assembled context, not counting the DRAWS block.
const MaxContextChars = 6000

const blockSeparator = "\n---\n"

// Assemble formats retrieval results into the generator's prompt context.
// Deterministic: each item becomes a "[card|orientation|domain] text" block,
// blocks are joined with a separator and truncated to maxChars preserving
// whole blocks, and a final DRAWS block lists every draw verbatim so the
// generator cannot invent tuples.
func Assemble(results []semantic.SearchResult, draws []domain.Draw, maxChars int) string {
	if maxChars <= 0 {
		maxChars = MaxContextChars
	}

	var b strings.Builder
	used := 0
	for _, r := range results {
		block := fmt.Sprintf("[%s|%s|%s] %s", r.Meta.CardID, r.Meta.Orientation, r.Meta.Domain, r.Text)
		cost := len(block)
		if used > 0 {
			cost += len(blockSeparator)
		}
		if used+cost > maxChars {
			break
		}
		if used > 0 {
			b.WriteString(blockSeparator)
		}
		b.WriteString(block)
		used += cost
	}

	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString(DrawsBlock(draws))
	return b.String()
}

// DrawsBlock renders the DRAWS listing on its own, for the degraded path
// where retrieval produced nothing.
func DrawsBlock(draws []domain.Draw) string {
	var b strings.Builder
	b.WriteString("DRAWS:")
	for _, d := range draws {
		fmt.Fprintf(&b, "\n- %s|%s|%s|%s", d.CardID, d.Orientation, d.Domain, d.Position)
	}
	return b.String()
}
