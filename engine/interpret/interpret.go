// Package interpret orchestrates the full reading pipeline. It accepts a
// question plus a draws payload, classifies the question, checks the reading
// cache, retrieves facet-grounded corpus passages, assembles the prompt
// context, and calls the generator for the final structured reading.
package interpret

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ArcanaLabs/arcana-engine/engine/cache"
	"github.com/ArcanaLabs/arcana-engine/engine/domain"
	"github.com/ArcanaLabs/arcana-engine/engine/reading"
	"github.com/ArcanaLabs/arcana-engine/engine/retrieval"
	"github.com/ArcanaLabs/arcana-engine/engine/router"
	"github.com/ArcanaLabs/arcana-engine/engine/semantic"
	"github.com/ArcanaLabs/arcana-engine/pkg/metrics"
)

// Retriever abstracts the facet-aware vector retriever.
type Retriever interface {
	Search(ctx context.Context, query string, draws []domain.Draw) ([]semantic.SearchResult, error)
}

// Generator abstracts the evidence-enforced reading generator.
type Generator interface {
	Generate(ctx context.Context, req reading.Request) (domain.Reading, error)
}

// ContextEnricher optionally adds cross-system archetype lines to the prompt
// context. Implementations must not fail; they return "" when nothing applies.
type ContextEnricher interface {
	ContextBlock(ctx context.Context, draws []domain.Draw) string
}

// ReadingCache is the cache surface the service needs.
type ReadingCache interface {
	Get(ctx context.Context, key string) (domain.Reading, bool)
	Set(ctx context.Context, key string, r domain.Reading)
}

// Request is one interpretation request as submitted by the API layer.
// Theme and SubTopic are optional labels (English or Korean); when absent the
// router classifies the question.
type Request struct {
	Question string        `json:"question"`
	Theme    string        `json:"theme,omitempty"`
	SubTopic string        `json:"sub_topic,omitempty"`
	Draws    []domain.Draw `json:"draws"`
	Locale   string        `json:"locale,omitempty"`
	UserID   string        `json:"user_id,omitempty"`
}

// Response is a reading plus the routing that produced it.
type Response struct {
	domain.Reading
	Theme    domain.Theme `json:"theme"`
	SubTopic string       `json:"sub_topic"`
	Spread   string       `json:"spread"`
	Cached   bool         `json:"cached,omitempty"`
}

// Service ties the router, cache, retriever, enricher, and generator together.
type Service struct {
	router   *router.Router
	cards    *domain.CardCatalog
	cache    ReadingCache
	retrieve Retriever
	enrich   ContextEnricher
	generate Generator
	reg      *metrics.Registry
	logger   *slog.Logger
}

// Deps holds the service dependencies. Cache and Enricher may be nil.
type Deps struct {
	Router    *router.Router
	Cards     *domain.CardCatalog
	Cache     ReadingCache
	Retriever Retriever
	Enricher  ContextEnricher
	Generator Generator
	Registry  *metrics.Registry
	Logger    *slog.Logger
}

// New creates the interpretation service.
func New(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		router:   deps.Router,
		cards:    deps.Cards,
		cache:    deps.Cache,
		retrieve: deps.Retriever,
		enrich:   deps.Enricher,
		generate: deps.Generator,
		reg:      deps.Registry,
		logger:   log,
	}
}

// Detect classifies a question without generating a reading, returning the
// detection plus the spread it resolves to.
func (s *Service) Detect(question string) (router.Detection, domain.Spread) {
	det := s.router.Detect(question)
	return det, s.router.ResolveSpread(det.Theme, det.SubTopic)
}

// Interpret runs the full pipeline for one request.
func (s *Service) Interpret(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if err := domain.ValidateQuestion(req.Question); err != nil {
		return nil, err
	}

	theme, subTopic, err := s.route(req)
	if err != nil {
		return nil, err
	}
	spread := s.router.ResolveSpread(theme, subTopic)

	if err := domain.ValidateDraws(req.Draws, spread, s.cards); err != nil {
		return nil, err
	}

	key := cache.Key(req.Question, req.Draws, theme, subTopic, req.Locale)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.count(metrics.WithLabels("arcana_interpret_total", "theme", string(theme), "outcome", "cache_hit"))
			s.logger.InfoContext(ctx, "interpret: cache hit", "theme", theme, "record_id", cached.RecordID)
			return &Response{Reading: cached, Theme: theme, SubTopic: subTopic, Spread: spread.Title, Cached: true}, nil
		}
	}

	promptCtx, degraded := s.buildContext(ctx, req.Question, req.Draws)

	out, err := s.generate.Generate(ctx, reading.Request{
		Question: req.Question,
		Draws:    req.Draws,
		Spread:   spread,
		Context:  promptCtx,
		Locale:   req.Locale,
		UserID:   req.UserID,
		Degraded: degraded,
	})
	if err != nil {
		s.count(metrics.WithLabels("arcana_interpret_total", "theme", string(theme), "outcome", "error"))
		return nil, fmt.Errorf("interpret: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, out)
	}

	outcome := "ok"
	if out.Degraded {
		outcome = "degraded"
	}
	s.count(metrics.WithLabels("arcana_interpret_total", "theme", string(theme), "outcome", outcome))
	s.observe("arcana_interpret_duration_seconds", time.Since(start).Seconds())
	s.logger.InfoContext(ctx, "interpret: reading generated",
		"theme", theme,
		"sub_topic", subTopic,
		"record_id", out.RecordID,
		"degraded", out.Degraded,
		"duration", time.Since(start),
	)

	return &Response{Reading: out, Theme: theme, SubTopic: subTopic, Spread: spread.Title}, nil
}

// route resolves the (theme, sub-topic) pair: explicit labels win, the router
// fills in whatever is missing.
func (s *Service) route(req Request) (domain.Theme, string, error) {
	if req.Theme == "" {
		det := s.router.Detect(req.Question)
		return det.Theme, det.SubTopic, nil
	}

	theme, ok := domain.CanonicalTheme(req.Theme)
	if !ok {
		return "", "", domain.NewValidationError([]domain.FieldError{
			{Field: "theme", Index: -1, Reason: domain.ErrUnknownTheme.Error()},
		})
	}

	subTopic := req.SubTopic
	if subTopic != "" {
		canon, ok := domain.CanonicalSubTopic(subTopic)
		if !ok {
			return "", "", domain.NewValidationError([]domain.FieldError{
				{Field: "sub_topic", Index: -1, Reason: domain.ErrUnknownSubTopic.Error()},
			})
		}
		subTopic = canon
	} else {
		subTopic = s.router.Detect(req.Question).SubTopic
	}
	return theme, subTopic, nil
}

// buildContext retrieves corpus passages and appends archetype cross-refs.
// A storage outage yields an empty context and marks the reading degraded;
// enrichment failures are invisible because the enricher never errors.
func (s *Service) buildContext(ctx context.Context, question string, draws []domain.Draw) (string, bool) {
	var results []semantic.SearchResult
	degraded := false

	res, err := s.retrieve.Search(ctx, question, draws)
	switch {
	case errors.Is(err, retrieval.ErrStorageUnavailable):
		degraded = true
		s.count("arcana_interpret_storage_degraded_total")
		s.logger.WarnContext(ctx, "interpret: storage unavailable, generating without context", "err", err)
	case err != nil:
		degraded = true
		s.logger.WarnContext(ctx, "interpret: retrieval failed, generating without context", "err", err)
	default:
		results = res
	}

	assembled := retrieval.Assemble(results, draws, retrieval.MaxContextChars)
	if s.enrich != nil {
		if block := s.enrich.ContextBlock(ctx, draws); block != "" {
			assembled = assembled + "\n\n" + block
		}
	}
	return assembled, degraded
}

func (s *Service) count(name string) {
	if s.reg != nil {
		s.reg.Counter(name, "interpretation requests by outcome").Inc()
	}
}

func (s *Service) observe(name string, v float64) {
	if s.reg != nil {
		s.reg.Histogram(name, "end-to-end interpretation latency", nil).Observe(v)
	}
}
