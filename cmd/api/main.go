// Package main implements the Arcana interpretation API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ArcanaLabs/arcana-engine/engine/archetype"
	"github.com/ArcanaLabs/arcana-engine/engine/cache"
	"github.com/ArcanaLabs/arcana-engine/engine/domain"
	"github.com/ArcanaLabs/arcana-engine/engine/feedback"
	"github.com/ArcanaLabs/arcana-engine/engine/interpret"
	"github.com/ArcanaLabs/arcana-engine/engine/reading"
	"github.com/ArcanaLabs/arcana-engine/engine/retrieval"
	"github.com/ArcanaLabs/arcana-engine/engine/router"
	"github.com/ArcanaLabs/arcana-engine/engine/semantic"
	"github.com/ArcanaLabs/arcana-engine/pkg/embed"
	"github.com/ArcanaLabs/arcana-engine/pkg/llm"
	"github.com/ArcanaLabs/arcana-engine/pkg/metrics"
	"github.com/ArcanaLabs/arcana-engine/pkg/mid"
	"github.com/ArcanaLabs/arcana-engine/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port          string
	MetricsPort   int
	QdrantURL     string
	Collection    string
	Neo4jURL      string
	Neo4jUser     string
	Neo4jPass     string
	NatsURL       string
	CacheBucket   string
	CacheTTL      time.Duration
	OllamaURL     string
	EmbedModel    string
	EmbedRPS      float64
	LLMBaseURL    string
	LLMAPIKey     string
	LLMModel      string
	LLMFallbacks  []string
	LLMTimeout    time.Duration
	Corpora       []string
	MinScore      float32
	RateLimitRPS  float64
	WarmupOnStart bool
	CORSOrigin    string
}

func loadConfig() Config {
	return Config{
		Port:          envOr("PORT", "8080"),
		MetricsPort:   envInt("METRICS_PORT", 9091),
		QdrantURL:     envOr("QDRANT_URL", "localhost:6334"),
		Collection:    envOr("QDRANT_COLLECTION", "arcana"),
		Neo4jURL:      envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:     envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:     envOr("NEO4J_PASS", "password"),
		NatsURL:       envOr("NATS_URL", nats.DefaultURL),
		CacheBucket:   envOr("CACHE_BUCKET", "arcana-readings"),
		CacheTTL:      time.Duration(envInt("CACHE_TTL_TAROT", 172800)) * time.Second,
		OllamaURL:     envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:    envOr("EMBED_MODEL", "nomic-embed-text"),
		EmbedRPS:      envFloat("EMBED_RPS", 20),
		LLMBaseURL:    envOr("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMAPIKey:     os.Getenv("LLM_API_KEY"),
		LLMModel:      envOr("LLM_MODEL", "anthropic/claude-sonnet-4"),
		LLMFallbacks:  splitCSV(envOr("LLM_FALLBACK_MODELS", "openai/gpt-4o-mini")),
		LLMTimeout:    time.Duration(envInt("LLM_TIMEOUT_SECONDS", 25)) * time.Second,
		Corpora:       splitCSV(envOr("DOMAIN_RAG_DOMAINS", "tarot")),
		MinScore:      float32(envFloat("TAROT_MIN_SCORE", 0.20)),
		RateLimitRPS:  envFloat("RATE_LIMIT_RPS", 50),
		WarmupOnStart: envOr("WARMUP_ON_START", "") == "1",
		CORSOrigin:    envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()
	reg.ServeAsync(cfg.MetricsPort)

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	// --- Connect to Neo4j ---
	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer neo4jDriver.Close(ctx)

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NatsURL, nats.Name("arcana-api"))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	kv, err := cache.EnsureBucket(nc, cfg.CacheBucket, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("cache bucket: %w", err)
	}

	// --- Assemble the pipeline ---
	cards := domain.NewCardCatalog()
	spreads := domain.NewSpreadCatalog()
	rt := router.New(spreads)

	embedder := embed.NewClient(cfg.OllamaURL, cfg.EmbedModel, cfg.EmbedRPS)

	retrOpts := retrieval.DefaultOptions()
	retrOpts.Corpora = cfg.Corpora
	retrOpts.MinScore = cfg.MinScore
	retriever := retrieval.New(embedder, vectorStore, retrOpts, logger)

	chat := llm.NewClient(nil, cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMFallbacks, logger)
	generator := reading.NewGenerator(chat, logger, reg).WithTimeout(cfg.LLMTimeout)

	cacheOpts := cache.DefaultOpts
	cacheOpts.TTL = cfg.CacheTTL
	readingCache := cache.New(kv, cacheOpts, logger)

	enricher := archetype.NewEnricher(archetype.NewStore(neo4jDriver), logger)

	svc := interpret.New(interpret.Deps{
		Router:    rt,
		Cards:     cards,
		Cache:     readingCache,
		Retriever: retriever,
		Enricher:  enricher,
		Generator: generator,
		Registry:  reg,
		Logger:    logger,
	})

	if cfg.WarmupOnStart {
		warmup(ctx, vectorStore, embedder, logger)
	}

	fb := feedback.NewPublisher(nc, logger)
	if _, err := feedback.CountRatings(nc, reg); err != nil {
		logger.Warn("feedback counter subscription failed", "err", err)
	}

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/tarot/interpret", handleInterpret(svc, cards, logger))
	mux.HandleFunc("POST /api/tarot/detect", handleDetect(svc))
	mux.HandleFunc("POST /api/tarot/feedback", handleFeedback(fb))

	limiter := resilience.NewLimiter(resilience.LimiterOpts{
		Rate:  cfg.RateLimitRPS,
		Burst: int(cfg.RateLimitRPS * 2),
	})
	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.RateLimit(limiter),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("arcana-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// warmup primes the embedder and vector store so the first real request does
// not pay the cold-start cost. Best-effort: failures are logged only.
func warmup(ctx context.Context, vs *semantic.VectorStore, embedder *embed.Client, logger *slog.Logger) {
	wctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	vec, err := embedder.Embed(wctx, "타로 카드 해석")
	if err != nil {
		logger.Warn("warmup embed failed", "err", err)
		return
	}
	if err := vs.EnsureCollection(wctx, len(vec)); err != nil {
		logger.Warn("warmup ensure collection failed", "err", err)
		return
	}
	if _, err := vs.Search(wctx, vec, semantic.SearchParams{TopK: 1}); err != nil {
		logger.Warn("warmup search failed", "err", err)
		return
	}
	logger.Info("warmup complete", "dims", len(vec))
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorBody is the JSON error envelope for upstream failures.
type errorBody struct {
	Status    string `json:"status"`
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

// validationBody is the JSON envelope for a 400 on a bad payload.
type validationBody struct {
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

// interpretTimeout bounds one interpret request end to end, covering
// retrieval, both LLM rounds, and the cache write.
const interpretTimeout = 45 * time.Second

// interpretRequest is the wire body for POST /api/tarot/interpret. Callers
// send either facet-complete draws or the legacy cards list; draws win when
// both are present.
type interpretRequest struct {
	Category     string        `json:"category"`
	SpreadID     string        `json:"spread_id"`
	SpreadTitle  string        `json:"spread_title"`
	Cards        []drawnCard   `json:"cards"`
	Draws        []domain.Draw `json:"draws"`
	UserQuestion string        `json:"user_question"`
	Language     string        `json:"language"`
	UserID       string        `json:"user_id"`
}

// drawnCard is the legacy per-card shape: display name plus reversal flag.
type drawnCard struct {
	Name       string `json:"name"`
	IsReversed bool   `json:"is_reversed"`
	Position   string `json:"position"`
}

// toEngine maps the wire body onto the pipeline request, deriving draws from
// the legacy cards list when no explicit draws were sent.
func (r interpretRequest) toEngine(cards *domain.CardCatalog) (interpret.Request, error) {
	draws := r.Draws
	if len(draws) == 0 && len(r.Cards) > 0 {
		area := categoryArea(r.Category)
		var errs []domain.FieldError
		for i, c := range r.Cards {
			card, ok := cards.FindByName(c.Name)
			if !ok {
				errs = append(errs, domain.FieldError{Field: "cards.name", Index: i, Reason: "unknown"})
				continue
			}
			orientation := domain.Upright
			if c.IsReversed {
				orientation = domain.Reversed
			}
			draws = append(draws, domain.Draw{
				CardID:      card.ID,
				Orientation: orientation,
				Domain:      area,
				Position:    c.Position,
			})
		}
		if err := domain.NewValidationError(errs); err != nil {
			return interpret.Request{}, err
		}
	}
	return interpret.Request{
		Question: r.UserQuestion,
		Theme:    r.Category,
		SubTopic: r.SpreadID,
		Draws:    draws,
		Locale:   r.Language,
		UserID:   r.UserID,
	}, nil
}

// categoryArea maps the request category onto the per-draw life area used by
// legacy cards, which carry no facet of their own.
func categoryArea(category string) domain.LifeArea {
	theme, ok := domain.CanonicalTheme(category)
	if !ok {
		return domain.AreaGeneral
	}
	switch theme {
	case domain.ThemeLove:
		return domain.AreaLove
	case domain.ThemeCareer:
		return domain.AreaCareer
	case domain.ThemeMoney:
		return domain.AreaMoney
	default:
		return domain.AreaGeneral
	}
}

func handleInterpret(svc *interpret.Service, cards *domain.CardCatalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body interpretRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, validationBody{Message: "Invalid draws payload"})
			return
		}
		if body.UserQuestion == "" {
			writeJSON(w, http.StatusBadRequest, validationBody{
				Message: "Invalid draws payload",
				Errors:  []domain.FieldError{{Field: "user_question", Index: -1, Reason: "required"}},
			})
			return
		}
		req, err := body.toEngine(cards)
		if err != nil {
			writeInterpretError(w, err, logger)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), interpretTimeout)
		defer cancel()

		resp, err := svc.Interpret(ctx, req)
		if err != nil {
			writeInterpretError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeInterpretError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, validationBody{Message: "Invalid draws payload", Errors: ve.Errors})
	case errors.Is(err, domain.ErrQuestionTooLong):
		writeJSON(w, http.StatusBadRequest, validationBody{
			Message: "Invalid draws payload",
			Errors:  []domain.FieldError{{Field: "question", Index: -1, Reason: err.Error()}},
		})
	case errors.Is(err, reading.ErrLLMUnavailable):
		writeJSON(w, http.StatusBadGateway, errorBody{Status: "error", ErrorKind: "llm_unavailable", Message: "interpretation backend unavailable"})
	case errors.Is(err, reading.ErrLLMMalformed):
		writeJSON(w, http.StatusBadGateway, errorBody{Status: "error", ErrorKind: "llm_malformed", Message: "interpretation backend returned an unusable reply"})
	default:
		logger.Error("interpret failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Status: "error", ErrorKind: "internal", Message: "internal server error"})
	}
}

// detectRequest is the JSON body for POST /api/tarot/detect.
type detectRequest struct {
	Question string `json:"question"`
}

// detectResponse pairs the detection with the spread it resolves to.
type detectResponse struct {
	router.Detection
	Spread domain.Spread `json:"spread"`
}

func handleDetect(svc *interpret.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req detectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
			writeJSON(w, http.StatusBadRequest, validationBody{
				Message: "Invalid draws payload",
				Errors:  []domain.FieldError{{Field: "question", Index: -1, Reason: "required"}},
			})
			return
		}
		det, spread := svc.Detect(req.Question)
		writeJSON(w, http.StatusOK, detectResponse{Detection: det, Spread: spread})
	}
}

func handleFeedback(fb *feedback.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec feedback.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeJSON(w, http.StatusBadRequest, validationBody{Message: "Invalid feedback payload"})
			return
		}
		if err := fb.Publish(r.Context(), rec); err != nil {
			if errors.Is(err, feedback.ErrInvalidRecord) {
				writeJSON(w, http.StatusBadRequest, validationBody{Message: "Invalid feedback payload"})
				return
			}
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Status: "error", ErrorKind: "feedback_unavailable", Message: "feedback could not be recorded"})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
