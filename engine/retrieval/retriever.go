// Package retrieval produces the ranked context for a (question, draws)
// pair. On top of plain similarity search it enforces the forced-facet rule:
// every drawn card gets at least one retrieved passage whose metadata matches
// its facet tuple, no matter how poorly that passage scores against the
// question.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
	"github.com/ArcanaLabs/arcana-engine/engine/semantic"
)

// ErrStorageUnavailable marks a vector store outage. Callers treat it as a
// soft signal: generation proceeds with empty context and the response is
// flagged degraded.
var ErrStorageUnavailable = errors.New("retrieval: vector storage unavailable")

// Embedder turns text into a query vector. Loaded once at process start;
// implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher abstracts the vector store so tests can substitute it.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, p semantic.SearchParams) ([]semantic.SearchResult, error)
}

// Options configures the retriever.
type Options struct {
	// TopK is the similarity-pass size; the final list may hold up to
	// TopK+len(draws) items after forced-facet injection.
	TopK int
	// MinScore filters the similarity pass only. Forced-facet passes ignore it.
	MinScore float32
	// Corpora are the active corpus domains.
	Corpora []string
	// Timeout bounds one whole retrieval (similarity + facet passes).
	Timeout time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		TopK:     8,
		MinScore: 0.20,
		Corpora:  []string{"tarot"},
		Timeout:  2 * time.Second,
	}
}

// Retriever runs the two retrieval passes and merges their results.
type Retriever struct {
	embed  Embedder
	store  Searcher
	opts   Options
	logger *slog.Logger
}

// New creates a Retriever.
func New(embed Embedder, store Searcher, opts Options, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if len(opts.Corpora) == 0 {
		opts.Corpora = DefaultOptions().Corpora
	}
	return &Retriever{embed: embed, store: store, opts: opts, logger: logger}
}

// relaxLadder is the facet relaxation order: drop position, then domain,
// then orientation. The dropped key is recorded in the hit's metadata.
var relaxLadder = []struct {
	drop []string
	name string
}{
	{drop: nil, name: ""},
	{drop: []string{"position"}, name: "position"},
	{drop: []string{"position", "domain"}, name: "domain"},
	{drop: []string{"position", "domain", "orientation"}, name: "orientation"},
}

// Search returns the merged context list. Order: forced-facet items first in
// draw order, then similarity items by descending score, truncated to
// TopK+len(draws). Any store failure degrades the whole retrieval to an
// empty list with ErrStorageUnavailable.
func (r *Retriever) Search(ctx context.Context, query string, draws []domain.Draw) ([]semantic.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	started := time.Now()

	embedding, err := r.embed.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("retrieval: embed failed", "err", err)
		return nil, fmt.Errorf("%w: embed: %w", ErrStorageUnavailable, err)
	}

	similar, err := r.store.Search(ctx, embedding, semantic.SearchParams{
		TopK:     r.opts.TopK,
		MinScore: r.opts.MinScore,
		Corpora:  r.opts.Corpora,
	})
	if err != nil {
		r.logger.Warn("retrieval: similarity pass failed", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	forced, err := r.forcedFacetPass(ctx, embedding, draws)
	if err != nil {
		return nil, err
	}

	merged := merge(forced, similar, r.opts.TopK+len(draws))
	r.logger.Info("retrieval done",
		"similar", len(similar),
		"forced", len(forced),
		"merged", len(merged),
		"elapsed", time.Since(started),
	)
	return merged, nil
}

// forcedFacetPass issues one filtered query per draw, in draw order,
// relaxing the facet filter until something matches. A draw whose card has
// no passage at all is skipped with a warning; a store error fails the pass.
func (r *Retriever) forcedFacetPass(ctx context.Context, embedding []float32, draws []domain.Draw) ([]semantic.SearchResult, error) {
	var out []semantic.SearchResult
	for i, d := range draws {
		hit, relaxed, err := r.facetQuery(ctx, embedding, d)
		if err != nil {
			r.logger.Warn("retrieval: facet pass failed", "draw", i, "err", err)
			return nil, fmt.Errorf("%w: facet query for %s: %w", ErrStorageUnavailable, d.CardID, err)
		}
		if hit == nil {
			r.logger.Warn("retrieval: no facet passage for draw", "card_id", d.CardID, "orientation", d.Orientation)
			continue
		}
		hit.Meta.Relaxed = relaxed
		out = append(out, *hit)
	}
	return out, nil
}

func (r *Retriever) facetQuery(ctx context.Context, embedding []float32, d domain.Draw) (*semantic.SearchResult, string, error) {
	full := d.FacetKey()
	for _, rung := range relaxLadder {
		filters := make(map[string]string, len(full))
		for k, v := range full {
			filters[k] = v
		}
		for _, k := range rung.drop {
			delete(filters, k)
		}

		hits, err := r.store.Search(ctx, embedding, semantic.SearchParams{
			TopK:    1,
			Filters: filters,
			Corpora: r.opts.Corpora,
			// No MinScore: the facet hit is injected unconditionally.
		})
		if err != nil {
			return nil, "", err
		}
		if len(hits) > 0 {
			return &hits[0], rung.name, nil
		}
	}
	return nil, "", nil
}

// merge dedupes by id. Forced items keep draw order and always win over a
// similarity duplicate; similarity items follow in descending score.
func merge(forced, similar []semantic.SearchResult, limit int) []semantic.SearchResult {
	seen := make(map[string]bool, len(forced)+len(similar))
	out := make([]semantic.SearchResult, 0, limit)

	for _, h := range forced {
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		out = append(out, h)
	}

	sorted := make([]semantic.SearchResult, len(similar))
	copy(sorted, similar)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	for _, h := range sorted {
		if len(out) >= limit {
			break
		}
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		out = append(out, h)
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
