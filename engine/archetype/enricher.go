package archetype

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
)

// Enricher renders cross-tradition context for drawn cards. The graph is a
// best-effort enrichment: any failure degrades to an empty block, never to a
// failed reading.
type Enricher struct {
	store *Store
	log   *slog.Logger
}

// NewEnricher wires an enricher. logger may be nil.
func NewEnricher(store *Store, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{store: store, log: logger}
}

// ContextBlock returns a CROSS_REFS block for the drawn cards, or the empty
// string when the graph yields nothing or is unreachable.
func (e *Enricher) ContextBlock(ctx context.Context, draws []domain.Draw) string {
	var b strings.Builder
	seen := make(map[string]bool)

	for _, d := range draws {
		linked, err := e.store.CrossRefsForCard(ctx, d.CardID)
		if err != nil {
			e.log.Warn("cross-ref lookup failed", "card_id", d.CardID, "err", err)
			return ""
		}
		for _, l := range linked {
			key := d.CardID + "|" + l.Archetype.ID
			if seen[key] {
				continue
			}
			seen[key] = true
			name := l.Archetype.Name
			if l.Archetype.NameKo != "" {
				name = l.Archetype.NameKo
			}
			fmt.Fprintf(&b, "- %s ~ %s:%s (%s)\n", d.CardID, l.Archetype.System, name, l.Relation)
		}
	}

	if b.Len() == 0 {
		return ""
	}
	return "CROSS_REFS:\n" + strings.TrimRight(b.String(), "\n")
}
