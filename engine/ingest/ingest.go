// Package ingest builds the interpretation corpus: entries are validated,
// chunked, embedded, and upserted into the vector store. The pipeline runs
// inline from the indexer CLI or as a NATS consumer.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
	"github.com/ArcanaLabs/arcana-engine/engine/semantic"
	"github.com/ArcanaLabs/arcana-engine/pkg/fn"
)

const (
	// IngestSubject is the NATS subject for incoming corpus entries.
	IngestSubject = "arcana.ingest"
	// DLQSubject receives entries that keep failing.
	DLQSubject = "arcana.ingest.dlq"
	// MaxRetries before an entry goes to the DLQ.
	MaxRetries = 3
	// EmbedBatchSize is the max chunks per embedding call.
	EmbedBatchSize = 64
)

// Embedder is the batch embedding surface the pipeline needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Upserter is the vector store surface the pipeline needs.
type Upserter interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Deps holds the external dependencies for the pipeline.
type Deps struct {
	Embedder Embedder
	Store    Upserter
	Cards    *domain.CardCatalog
	Logger   *slog.Logger
}

var validCorpora = map[string]bool{"tarot": true, "saju": true, "astro": true}

// NewValidate returns the validation stage. Facet fields are optional, but
// whatever is set must be legal, and tarot entries must name a known card.
func NewValidate(cards *domain.CardCatalog) fn.Stage[CorpusEntry, CorpusEntry] {
	return func(_ context.Context, e CorpusEntry) fn.Result[CorpusEntry] {
		var errs []domain.FieldError
		if !validCorpora[e.Corpus] {
			errs = append(errs, domain.FieldError{Field: "corpus", Index: -1, Reason: "unknown"})
		}
		if e.EntryID == "" {
			errs = append(errs, domain.FieldError{Field: "entry_id", Index: -1, Reason: "required"})
		}
		if e.Text == "" {
			errs = append(errs, domain.FieldError{Field: "text", Index: -1, Reason: "required"})
		}
		if e.Corpus == "tarot" && e.CardID != "" && cards != nil && !cards.Has(e.CardID) {
			errs = append(errs, domain.FieldError{Field: "card_id", Index: -1, Reason: "unknown"})
		}
		if e.Orientation != "" && !domain.ValidOrientations[domain.Orientation(e.Orientation)] {
			errs = append(errs, domain.FieldError{Field: "orientation", Index: -1, Reason: "invalid"})
		}
		if e.Domain != "" && !domain.ValidLifeAreas[domain.LifeArea(e.Domain)] {
			errs = append(errs, domain.FieldError{Field: "domain", Index: -1, Reason: "invalid"})
		}
		if err := domain.NewValidationError(errs); err != nil {
			return fn.Err[CorpusEntry](err)
		}
		return fn.Ok(e)
	}
}

// ChunkStage splits an entry's text; short entries become a single chunk.
var ChunkStage fn.Stage[CorpusEntry, ChunkedEntry] = func(_ context.Context, e CorpusEntry) fn.Result[ChunkedEntry] {
	chunks := chunkEntry(e.EntryID, e.Text, DefaultChunkSize, DefaultOverlap)
	if len(chunks) == 0 {
		chunks = []Chunk{{Text: e.Text, Index: 0, EntryID: e.EntryID}}
	}
	return fn.Ok(ChunkedEntry{Entry: e, Chunks: chunks})
}

// NewEmbed returns the embedding stage, batching chunks per call.
func NewEmbed(embedder Embedder) fn.Stage[ChunkedEntry, EmbeddedEntry] {
	return func(ctx context.Context, ce ChunkedEntry) fn.Result[EmbeddedEntry] {
		embeddings := make([][]float32, 0, len(ce.Chunks))

		for _, batch := range fn.Chunk(ce.Chunks, EmbedBatchSize) {
			texts := fn.Map(batch, func(c Chunk) string { return c.Text })
			vecs, err := embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return fn.Err[EmbeddedEntry](fmt.Errorf("embed batch: %w", err))
			}
			embeddings = append(embeddings, vecs...)
		}

		return fn.Ok(EmbeddedEntry{ChunkedEntry: ce, Embeddings: embeddings})
	}
}

// NewStore returns the store stage: one vector record per chunk, with the
// entry's facet metadata on each.
func NewStore(store Upserter) fn.Stage[EmbeddedEntry, string] {
	return func(ctx context.Context, ee EmbeddedEntry) fn.Result[string] {
		records := make([]semantic.VectorRecord, len(ee.Chunks))
		for i, chunk := range ee.Chunks {
			records[i] = semantic.VectorRecord{
				ID:        PointID(ee.Entry.EntryID, chunk.Index),
				Text:      chunk.Text,
				Embedding: ee.Embeddings[i],
				Meta:      ee.Entry.meta(),
			}
		}
		if err := store.Upsert(ctx, records); err != nil {
			return fn.Err[string](fmt.Errorf("vector upsert: %w", err))
		}
		return fn.Ok(ee.Entry.EntryID)
	}
}

// PointID derives the deterministic point uuid for an entry chunk, so
// re-ingesting an entry overwrites its previous points.
func PointID(entryID string, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s-%d", entryID, chunkIndex))).String()
}

// loggedTap logs stage entry and exit with duration.
func loggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(_ context.Context, t T) fn.Result[T] {
		log.Debug("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Debug("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// NewPipeline composes validate, chunk, embed, and store.
func NewPipeline(deps Deps) fn.Stage[CorpusEntry, string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	validated := fn.Then(loggedTap[CorpusEntry]("validate", log), NewValidate(deps.Cards))
	chunked := fn.Then(validated, fn.Then(loggedTap[CorpusEntry]("chunk", log), ChunkStage))
	embedded := fn.Then(chunked, fn.Then(loggedTap[ChunkedEntry]("embed", log), NewEmbed(deps.Embedder)))
	stored := fn.Then(embedded, fn.Then(loggedTap[EmbeddedEntry]("store", log), NewStore(deps.Store)))
	return fn.TracedStage("ingest.entry", stored)
}

// dlqMessage wraps an entry that exhausted its retries.
type dlqMessage struct {
	Entry   CorpusEntry `json:"entry"`
	Error   string      `json:"error"`
	Retries int         `json:"retries"`
}

// StartConsumer subscribes to the ingest subject and runs entries through the
// pipeline with retry and DLQ handling.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(IngestSubject, func(msg *nats.Msg) {
		var entry CorpusEntry
		if err := json.Unmarshal(msg.Data, &entry); err != nil {
			log.Error("ingest: unmarshal failed", "err", err)
			return
		}

		ctx := context.Background()

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		result := pipeline(ctx, entry)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("ingest: pipeline failed",
				"err", pipeErr,
				"entry_id", entry.EntryID,
				"retry", retries,
			)

			// Validation failures are permanent; retrying cannot fix them.
			if domain.IsValidationError(pipeErr) || retries >= MaxRetries {
				data, _ := json.Marshal(dlqMessage{Entry: entry, Error: pipeErr.Error(), Retries: retries})
				if err := nc.Publish(DLQSubject, data); err != nil {
					log.Error("ingest: DLQ publish failed", "err", err)
				}
				return
			}

			retryMsg := nats.NewMsg(IngestSubject)
			retryMsg.Data = msg.Data
			retryMsg.Header = nats.Header{}
			retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
			if err := nc.PublishMsg(retryMsg); err != nil {
				log.Error("ingest: retry publish failed", "err", err)
			}
			return
		}

		entryID, _ := result.Unwrap()
		log.Info("ingest: entry stored", "entry_id", entryID)
	})
}
